package ble

import (
	lru "github.com/hashicorp/golang-lru"
)

// readyManufacturer/readyName mirror TotemBLEDevice's ready bitmask
// (0x1 manufacturer data seen, 0x2 name seen; isReady() fires once,
// guarded by the 0x4 "already reported" bit).
const (
	readyManufacturer = 1 << 0
	readyName         = 1 << 1
	readyReported     = 1 << 2
)

// discovered tracks one advertising address until both its
// manufacturer data and its name have arrived, the same two-part
// readiness TotemBLEDevice::isReady gates on.
type discovered struct {
	adv   AdvertisedData
	name  string
	ready uint8
}

// Registry deduplicates BLE advertisements by address, bounded by an
// LRU so a long scan of a crowded room can't grow without limit —
// TotemBLEScanner's linked list has no such bound because Arduino scans
// run for a fixed duration and are torn down afterward; a long-running
// host process scanning continuously needs the cap golang-lru gives.
type Registry struct {
	cache *lru.Cache
}

// NewRegistry returns a Registry holding up to capacity addresses.
func NewRegistry(capacity int) (*Registry, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache}, nil
}

// Device is a ready-to-use discovery result: both manufacturer data and
// a name have been observed for this address.
type Device struct {
	Address string
	Adv     AdvertisedData
	Name    string
}

// Observe records manufacturer data and/or a name seen for address, and
// reports the completed Device the first time both have arrived —
// mirroring onResult's "update fields, then check isReady once" flow.
func (r *Registry) Observe(address string, manuf []byte, haveManuf bool, name string, haveName bool) (Device, bool) {
	var d *discovered
	if v, ok := r.cache.Get(address); ok {
		d = v.(*discovered)
	} else {
		d = &discovered{}
	}
	if haveManuf {
		if adv, ok := ParseManufacturerData(manuf); ok {
			d.adv = adv
		}
		d.ready |= readyManufacturer
	}
	if haveName {
		d.name = name
		d.ready |= readyName
	}
	r.cache.Add(address, d)

	if d.ready&(readyManufacturer|readyName) == readyManufacturer|readyName && d.ready&readyReported == 0 {
		d.ready |= readyReported
		return Device{Address: address, Adv: d.adv, Name: d.name}, true
	}
	return Device{}, false
}

// Lookup returns the last known Device for address, if any was ever
// observed (ready or not).
func (r *Registry) Lookup(address string) (Device, bool) {
	v, ok := r.cache.Get(address)
	if !ok {
		return Device{}, false
	}
	d := v.(*discovered)
	return Device{Address: address, Adv: d.adv, Name: d.name}, true
}

// Reset forgets every observed address, the equivalent of
// TotemBLEScanner::stop freeing its linked list of scan results.
func (r *Registry) Reset() {
	r.cache.Purge()
}
