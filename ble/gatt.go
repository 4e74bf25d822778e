package ble

import (
	"fmt"
	"sync"

	"github.com/paypal/gatt"
	"github.com/totemmaker/totembus-go"
	"github.com/totemmaker/totembus-go/internal/tlog"
)

var glog = tlog.Get("ble")

// ServiceUUID, TXCharUUID and RXCharUUID are TotemCANService.h's GATT
// identifiers: one service carrying a write-only TX characteristic (app
// to board) and a notify-only RX characteristic (board to app).
var (
	ServiceUUID = gatt.MustParseUUID("bae50001-a471-446a-bc43-4b0a60512636")
	TXCharUUID  = gatt.MustParseUUID("bae50002-a471-446a-bc43-4b0a60512636")
	RXCharUUID  = gatt.MustParseUUID("bae50003-a471-446a-bc43-4b0a60512636")
)

// Peripheral is the slice of gatt.Peripheral a Transport needs: discover
// the CAN service's characteristics, write to TX, subscribe to RX. It
// is defined locally, rather than depended on directly, so Transport's
// logic can be exercised against a fake in tests without a real BLE
// central stack.
type Peripheral interface {
	DiscoverServices(filter []gatt.UUID) ([]*gatt.Service, error)
	DiscoverCharacteristics(filter []gatt.UUID, s *gatt.Service) ([]*gatt.Characteristic, error)
	WriteCharacteristic(c *gatt.Characteristic, data []byte, noRsp bool) error
	SetNotifyValue(c *gatt.Characteristic, f func(c *gatt.Characteristic, b []byte, err error)) error
	Close() error
}

// Transport implements network.Transport over one connected peripheral
// already running TotemCANService: SendFrame writes an encoded packet
// to TX, and inbound notifications on RX are decoded and handed to
// onFrame — the Go-idiomatic analogue of
// TotemCANService::onNotifyValue feeding TotemBUSClient::parseBuffer.
type Transport struct {
	p       Peripheral
	tx      *gatt.Characteristic
	onFrame func(id uint32, data []byte)

	mu     sync.Mutex
	closed bool
}

// NewTransport discovers the CAN service on p, registers for RX
// notifications, and returns a ready Transport. onFrame is invoked
// (from the BLE stack's notification goroutine) for every inbound
// decoded frame; it should be fast, matching how Network.HandleFrame
// itself is expected to be used.
func NewTransport(p Peripheral, onFrame func(id uint32, data []byte)) (*Transport, error) {
	services, err := p.DiscoverServices([]gatt.UUID{ServiceUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover service: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("ble: CAN service not found")
	}
	chars, err := p.DiscoverCharacteristics([]gatt.UUID{TXCharUUID, RXCharUUID}, services[0])
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}
	var tx, rx *gatt.Characteristic
	for _, c := range chars {
		switch c.UUID().String() {
		case TXCharUUID.String():
			tx = c
		case RXCharUUID.String():
			rx = c
		}
	}
	if tx == nil || rx == nil {
		return nil, fmt.Errorf("ble: TX/RX characteristic missing")
	}
	t := &Transport{p: p, tx: tx, onFrame: onFrame}
	if err := p.SetNotifyValue(rx, t.handleNotify); err != nil {
		return nil, fmt.Errorf("ble: subscribe RX: %w", err)
	}
	return t, nil
}

func (t *Transport) handleNotify(c *gatt.Characteristic, b []byte, err error) {
	if err != nil {
		glog.Warningf("rx notify error: %v", err)
		return
	}
	id, data, length, decErr := DecodePacket(b)
	if decErr != nil {
		glog.Debugf("dropping malformed packet: %v", decErr)
		return
	}
	t.onFrame(id, data[:length])
}

// SendFrame implements totembus.FrameSender by writing the encoded
// packet to TX with no response expected, matching
// TotemCANService::send's noRsp write.
func (t *Transport) SendFrame(f totembus.Frame) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("ble: transport closed")
	}
	return t.p.WriteCharacteristic(t.tx, EncodePacket(f), true)
}

// Close disconnects the underlying peripheral.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.p.Close()
}
