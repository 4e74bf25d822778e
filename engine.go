package totembus

import "sync"

// FrameSender is the transport boundary a Bus writes CAN frames to —
// a real CAN driver, or the BLE tunnel in the ble package.
type FrameSender interface {
	SendFrame(Frame) error
}

// Config configures a Bus's reassembly resources. Verify replaces zero or
// negative values with their defaults before use.
type Config struct {
	// ReaderPoolSize is the number of concurrently in-flight senders a
	// Bus can reassemble frames from at once (Open Question in spec §9,
	// resolved here with a default of 2, matching the original's fixed
	// ReadersCount=2 for a typical one-or-two-module link).
	ReaderPoolSize int
	// ReaderBufferSize bounds the reassembled Compound payload per slot.
	ReaderBufferSize int
}

// DefaultConfig returns the Config used when a Bus is constructed with
// a zero-value Config.
func DefaultConfig() Config {
	return Config{ReaderPoolSize: 2, ReaderBufferSize: 1000}
}

// Verify fills in defaults for zero or negative fields, the way
// GoAethereal-modbus's Config.Verify prepares a config before use. It
// never rejects a Config and always returns nil.
func (c *Config) Verify() error {
	if c.ReaderPoolSize <= 0 {
		c.ReaderPoolSize = 2
	}
	if c.ReaderBufferSize <= 0 {
		c.ReaderBufferSize = 1000
	}
	return nil
}

// Bus is the protocol engine: it serializes outbound messages into CAN
// frames and reassembles/classifies inbound frames into Messages. It
// holds no transport or request/response state of its own — that's
// network.Network and module.Ctrl layered on top.
type Bus struct {
	sender FrameSender
	mu     sync.Mutex
	pool   []*Reader
}

// NewBus constructs a Bus writing outbound frames to sender. A zero
// Config uses DefaultConfig.
func NewBus(sender FrameSender, cfg Config) *Bus {
	if err := cfg.Verify(); err != nil {
		cfg = DefaultConfig()
	}
	pool := make([]*Reader, cfg.ReaderPoolSize)
	for i := range pool {
		pool[i] = NewReader(cfg.ReaderBufferSize)
	}
	return &Bus{sender: sender, pool: pool}
}

// reentryLimit bounds the "retry with a freed slot" recursion that
// ResultErrExtMissing triggers, matching the original's stackDepth>3 cap
// (a CompoundExt arriving with no matching in-progress reassembly,
// repeated across every pool slot, must not recurse unboundedly).
const reentryLimit = 3

// ProcessIncoming feeds one inbound CAN frame into the reader pool and,
// if it completes a reassembly, returns the classified Message. ok is
// false when the frame was consumed but no message is complete yet, or
// when result reports a non-terminal error that the caller should log
// but not otherwise act on.
func (b *Bus) ProcessIncoming(id uint32, data []byte) (msg Message, ok bool, result Result) {
	return b.processIncoming(id, data, 0)
}

func (b *Bus) processIncoming(id uint32, data []byte, depth int) (Message, bool, Result) {
	b.mu.Lock()
	reader := b.selectReader(id)
	b.mu.Unlock()
	if reader == nil {
		return Message{}, false, ResultErrBufOverflow
	}
	result := reader.ProcessFrame(id, data)
	if result == ResultReceived {
		info := reader.Info()
		msg := classify(info.Number, info.Serial, info.IsRequest, info.IsPing(), &info.Data)
		info.Release()
		return msg, true, ResultReceived
	}
	if result == ResultErrExtMissing {
		if depth >= reentryLimit {
			return Message{}, false, ResultErrExtMissing
		}
		return b.processIncoming(id, data, depth+1)
	}
	return Message{}, false, result
}

// selectReader implements the original pool scan: prefer a slot already
// reassembling this module's address; otherwise remember the first free
// (unused) slot as a fallback, returning nil only when every slot is
// both in-progress and addressed to a different module.
func (b *Bus) selectReader(id uint32) *Reader {
	var free *Reader
	for _, r := range b.pool {
		if r.ForModule(id) {
			return r
		}
		if free == nil && !r.IsUsed() {
			free = r
		}
	}
	return free
}

// BusFrame is a prepared outbound message, built by one of the package
// functions below (WriteCommandFrame, ReadCommandFrame, PingFrame, ...)
// and sent with Bus.Send.
type BusFrame struct {
	data      Data
	isRequest bool
}

func isValidAddress(number, serial uint16) bool {
	return ValidNumber(uint32(number)) && ValidSerial(uint32(serial))
}

// Send serializes f into one or more CAN frames addressed to
// number/serial and writes them through the Bus's FrameSender.
func (b *Bus) Send(number, serial uint16, f BusFrame) error {
	if !isValidAddress(number, serial) {
		return ErrInvalidAddress
	}
	if f.data.IsEmpty() {
		return b.sender.SendFrame(pingFrame(number, serial, f.isRequest))
	}
	w := NewWriter(&f.data, number, serial)
	w.SetRequest(f.isRequest)
	for {
		frame, ok := w.NextFrame()
		if !ok {
			return nil
		}
		if err := b.sender.SendFrame(frame); err != nil {
			return err
		}
	}
}

func pingFrame(number, serial uint16, isRequest bool) Frame {
	return PingFrame(number, serial, isRequest)
}

// WriteCommandFrame builds a bare command invocation, optionally asking
// for a response (ResponseOk/ResponseFail).
func WriteCommandFrame(command uint32, responseReq bool) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(responseReq)
	f.data.SetCommandHash(command)
	return f
}

// WriteValueFrame builds a command carrying an integer value.
func WriteValueFrame(command uint32, value int32, responseReq bool) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(responseReq)
	f.data.SetCommandHash(command)
	f.data.SetValueInt(value)
	return f
}

// WriteStringFrame builds a command carrying a string value.
func WriteStringFrame(command uint32, value string, responseReq bool) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(responseReq)
	f.data.SetCommandHash(command)
	f.data.SetValueString(value)
	return f
}

// ReadCommandFrame builds a request for the current value of command,
// always expecting a response.
func ReadCommandFrame(command uint32) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(true)
	f.data.SetValueInt(int32(command))
	return f
}

// RequestValueFrame builds a byte-tagged request for command's current
// integer value, distinct from ReadCommandFrame's untagged lookup form —
// the form TotemBLEModule::cmdRequestValue sends via TotemBUS::requestValue.
func RequestValueFrame(command uint32) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(true)
	f.data.SetByte(byte(RequestValue))
	f.data.SetCommandHash(command)
	return f
}

// RequestStringFrame is RequestValueFrame for a string-valued command,
// matching TotemBUS::requestString.
func RequestStringFrame(command uint32) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(true)
	f.data.SetByte(byte(RequestString))
	f.data.SetCommandHash(command)
	return f
}

// SendValueFrame builds a byte-tagged, fire-and-forget integer value
// push, matching TotemBUS::sendValue as used by
// TotemBLEModule::cmdSendValue.
func SendValueFrame(command uint32, value int32) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetByte(byte(SendValue))
	f.data.SetCommandHash(command)
	f.data.SetValueInt(value)
	return f
}

// SendStringFrame is SendValueFrame for a string payload, matching
// TotemBUS::sendString.
func SendStringFrame(command uint32, value string) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetByte(byte(SendString))
	f.data.SetCommandHash(command)
	f.data.SetValueString(value)
	return f
}

// PingRequestFrame builds an empty request frame (a liveness ping).
func PingRequestFrame() BusFrame {
	return BusFrame{isRequest: true}
}

// SubscribeFrame asks a module to emit ResponseValue/ResponseString
// messages for command every interval milliseconds.
func SubscribeFrame(command uint32, interval int32, responseReq bool) BusFrame {
	var f BusFrame
	f.isRequest = true
	f.data.SetBit(responseReq)
	f.data.SetByte(byte(Subscribe))
	f.data.SetCommandHash(command)
	f.data.SetValueInt(interval)
	return f
}

// RespondPingFrame builds the pong reply to a RequestPing.
func RespondPingFrame() BusFrame {
	return BusFrame{isRequest: false}
}

// RespondValueFrame builds a ResponseValue reply.
func RespondValueFrame(command uint32, value int32) BusFrame {
	var f BusFrame
	f.isRequest = false
	f.data.SetCommandHash(command)
	f.data.SetValueInt(value)
	return f
}

// RespondStringFrame builds a ResponseString reply.
func RespondStringFrame(command uint32, value string) BusFrame {
	var f BusFrame
	f.isRequest = false
	f.data.SetCommandHash(command)
	f.data.SetValueString(value)
	return f
}

// RespondStatusFrame builds a ResponseOk/ResponseFail reply, optionally
// carrying a nonzero status value.
func RespondStatusFrame(command uint32, success bool, status int32) BusFrame {
	var f BusFrame
	f.isRequest = false
	if success {
		f.data.SetByte(byte(ResponseOk))
	} else {
		f.data.SetByte(byte(ResponseFail))
	}
	f.data.SetCommandHash(command)
	if status != 0 {
		f.data.SetValueInt(status)
	}
	return f
}
