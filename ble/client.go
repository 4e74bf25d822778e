package ble

import (
	"fmt"

	"github.com/paypal/gatt"
)

// Central is the slice of gatt.Device a scanning/connecting client
// needs: start/stop discovery and connect to a discovered peripheral.
// Kept local and narrow for the same testability reason as Peripheral.
type Central interface {
	Scan(ss []gatt.UUID, dup bool)
	StopScanning()
	Connect(p gatt.Peripheral)
	CancelConnection(p gatt.Peripheral)
}

// DiscoveryHandler is invoked once a board's advertisement carries both
// its manufacturer data and name — the same two-piece readiness gate
// TotemBLEDevice::isReady applies before TotemBLEScanner reports a
// device.
type DiscoveryHandler func(p gatt.Peripheral, dev Device)

// Scanner discovers TotemBUS boards advertising ServiceUUID and
// reports each one once via onFound, mirroring
// TotemBLEScanner::onResult's service filter plus its per-address
// ready-state tracking (done here by Registry rather than a linked
// list, see registry.go).
type Scanner struct {
	central  Central
	registry *Registry
	onFound  DiscoveryHandler

	peripherals map[string]gatt.Peripheral
}

// NewScanner returns a Scanner that reports at most capacity
// concurrently-tracked addresses (see NewRegistry) to onFound.
func NewScanner(central Central, capacity int, onFound DiscoveryHandler) (*Scanner, error) {
	reg, err := NewRegistry(capacity)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		central:     central,
		registry:    reg,
		onFound:     onFound,
		peripherals: make(map[string]gatt.Peripheral),
	}, nil
}

// Start begins scanning for ServiceUUID advertisers. dup controls
// whether gatt reports the same address repeatedly (needed here, since
// Registry itself dedupes readiness) or only once.
func (s *Scanner) Start(dup bool) {
	s.central.Scan([]gatt.UUID{ServiceUUID}, dup)
}

// Stop ends discovery and forgets every address observed so far.
func (s *Scanner) Stop() {
	s.central.StopScanning()
	s.registry.Reset()
	s.peripherals = make(map[string]gatt.Peripheral)
}

// HandlePeripheralDiscovered should be wired as the gatt central's
// PeripheralDiscovered callback. It updates the address's readiness
// state and, the first time both manufacturer data and a name have
// been seen, invokes onFound — TotemBLEScanner's behavior exactly.
func (s *Scanner) HandlePeripheralDiscovered(p gatt.Peripheral, a *gatt.Advertisement) {
	address := p.ID()
	s.peripherals[address] = p
	var manuf []byte
	haveManuf := a.ManufacturerData != nil
	if haveManuf {
		manuf = a.ManufacturerData
	}
	name := a.LocalName
	haveName := name != ""
	dev, ready := s.registry.Observe(address, manuf, haveManuf, name, haveName)
	if ready {
		s.onFound(p, dev)
	}
}

// Connect dials the given peripheral (previously reported by onFound)
// and returns a ready Transport once TotemCANService has been
// discovered and subscribed, matching establishConnection's
// connect-then-initService sequence. onFrame receives decoded inbound
// frames, see Transport. peripheral doubles as the Peripheral
// NewTransport talks to: gatt.Peripheral already exposes the discovery
// and characteristic methods that interface needs.
func Connect(central Central, peripheral gatt.Peripheral, onFrame func(id uint32, data []byte)) (*Transport, error) {
	central.Connect(peripheral)
	t, err := NewTransport(peripheral, onFrame)
	if err != nil {
		central.CancelConnection(peripheral)
		return nil, fmt.Errorf("ble: establish connection: %w", err)
	}
	return t, nil
}
