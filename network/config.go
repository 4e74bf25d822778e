package network

import (
	"errors"
	"time"

	"github.com/totemmaker/totembus-go"
)

// ErrInvalidParameter signals a malformed Config, the way
// GoAethereal-modbus's Config.Verify rejects an unrecognized Mode/Kind.
var ErrInvalidParameter = errors.New("network: given parameter violates restriction")

// Config configures a Network: its protocol engine resource limits, its
// outbound queue depth, and its ping-monitor timing.
type Config struct {
	// Bus is passed through to totembus.NewBus; a zero value uses
	// totembus.DefaultConfig().
	Bus totembus.Config
	// SendQueueCapacity bounds the outbound frame queue the sender
	// worker drains (spec §4.6's "outbound byte-ring"). Default 100,
	// matching the original's xRingbufferCreate(...*100).
	SendQueueCapacity int
	// SendTick is the maximum the sender worker waits before checking
	// the queue again (spec §4.6, default 250ms matching
	// pdMS_TO_TICKS(250) in the original canPacketsSendTask).
	SendTick time.Duration
	// PingTimeout is the per-attempt ping wait Verify defaults to 50ms
	// (matching TotemNetwork::isConnected's isModuleConnected(50,2,...)).
	// Network.IsConnected takes its timeout as an argument and does not
	// read this field.
	PingTimeout time.Duration
	// PingRetries is the ping attempt count Verify defaults to 2.
	// Network.IsConnected takes its retry count as an argument and does
	// not read this field.
	PingRetries int
}

// Verify fills in zero fields with their defaults. It never rejects a
// Config outright since every field has a sane default; it exists
// (mirroring GoAethereal-modbus's Config.Verify) as the single place
// that defaulting logic lives.
func (c *Config) Verify() error {
	if c.SendQueueCapacity <= 0 {
		c.SendQueueCapacity = 100
	}
	if c.SendTick <= 0 {
		c.SendTick = 250 * time.Millisecond
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 50 * time.Millisecond
	}
	if c.PingRetries <= 0 {
		c.PingRetries = 2
	}
	return nil
}
