package network

import "github.com/totemmaker/totembus-go"

// Responder lets a Go process emulate a TotemBUS board: given an
// inbound request Message, it returns the BusFrame to send back (if
// any). Installed on a Network with SetResponder.
//
// This generalizes the original library's per-function-code Mux
// dispatcher (TotemLib request handling is normally compiled onto the
// board's firmware; this is the host-side equivalent for testing a
// controller against a simulated board, or for bridging a non-CAN
// device into a TotemBUS network).
type Responder interface {
	Handle(totembus.Message) (reply totembus.BusFrame, ok bool)
}

// Mux implements Responder as a set of per-MessageType callbacks, the
// way handler.go's Mux dispatches per Modbus function code: a nil
// callback means "not handled", and the fallback behavior for a
// response-requesting message with no handler is a ResponseFail.
type Mux struct {
	// OnWriteCommand handles a bare command invocation.
	OnWriteCommand func(command uint32) bool
	// OnWriteValue handles a command carrying an integer value.
	OnWriteValue func(command uint32, value int32) bool
	// OnWriteString handles a command carrying a string value.
	OnWriteString func(command uint32, value string) bool
	// OnReadCommand answers a value read; ok=false yields ResponseFail.
	OnReadCommand func(command uint32) (value int32, ok bool)
	// OnSubscribe handles a subscription request.
	OnSubscribe func(command uint32, intervalMS int32) bool
	// OnRequestValue answers a byte-tagged value request; ok=false
	// yields ResponseFail.
	OnRequestValue func(command uint32) (value int32, ok bool)
	// OnRequestString answers a byte-tagged string request; ok=false
	// yields ResponseFail.
	OnRequestString func(command uint32) (value string, ok bool)
	// OnSendValue handles a byte-tagged, fire-and-forget integer push.
	OnSendValue func(command uint32, value int32) bool
	// OnSendString handles a byte-tagged, fire-and-forget string push.
	OnSendString func(command uint32, value string) bool
}

var _ Responder = (*Mux)(nil)

// Handle dispatches msg to the matching callback and, if msg asked for
// a response, builds the appropriate reply frame.
func (m *Mux) Handle(msg totembus.Message) (totembus.BusFrame, bool) {
	switch msg.Type {
	case totembus.WriteCommand:
		return m.status(msg, m.OnWriteCommand != nil && m.OnWriteCommand(msg.Command))
	case totembus.WriteValue:
		return m.status(msg, m.OnWriteValue != nil && m.OnWriteValue(msg.Command, msg.Value))
	case totembus.WriteString:
		return m.status(msg, m.OnWriteString != nil && m.OnWriteString(msg.Command, msg.String))
	case totembus.Subscribe:
		return m.status(msg, m.OnSubscribe != nil && m.OnSubscribe(msg.Command, msg.Value))
	case totembus.ReadCommand:
		if m.OnReadCommand == nil {
			return m.status(msg, false)
		}
		value, ok := m.OnReadCommand(msg.Command)
		if !ok {
			return m.status(msg, false)
		}
		return totembus.RespondValueFrame(msg.Command, value), true
	case totembus.RequestValue:
		if m.OnRequestValue == nil {
			return m.status(msg, false)
		}
		value, ok := m.OnRequestValue(msg.Command)
		if !ok {
			return m.status(msg, false)
		}
		return totembus.RespondValueFrame(msg.Command, value), true
	case totembus.RequestString:
		if m.OnRequestString == nil {
			return m.status(msg, false)
		}
		value, ok := m.OnRequestString(msg.Command)
		if !ok {
			return m.status(msg, false)
		}
		return totembus.RespondStringFrame(msg.Command, value), true
	case totembus.SendValue:
		return m.status(msg, m.OnSendValue != nil && m.OnSendValue(msg.Command, msg.Value))
	case totembus.SendString:
		return m.status(msg, m.OnSendString != nil && m.OnSendString(msg.Command, msg.String))
	}
	return totembus.BusFrame{}, false
}

// status builds a ResponseOk/ResponseFail reply if and only if the
// request asked for one (msg.ResponseReq), matching moduleWrite's
// "only wait/need a response when responseReq is set" contract on the
// sending side.
func (m *Mux) status(msg totembus.Message, ok bool) (totembus.BusFrame, bool) {
	if !msg.ResponseReq {
		return totembus.BusFrame{}, false
	}
	return totembus.RespondStatusFrame(msg.Command, ok, 0), true
}
