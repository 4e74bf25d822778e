package totembus

import "testing"

type captureSender struct {
	frames []Frame
}

func (c *captureSender) SendFrame(f Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func deliverAll(t *testing.T, bus *Bus, frames []Frame) Message {
	t.Helper()
	var last Message
	var got bool
	for _, f := range frames {
		m, ok, result := bus.ProcessIncoming(f.ID, f.Data[:f.Len])
		if result.failed() {
			t.Fatalf("ProcessIncoming failed: %v", result)
		}
		if ok {
			last, got = m, true
		}
	}
	if !got {
		t.Fatal("no message was produced by the frame sequence")
	}
	return last
}

func TestBusSendReceiveWriteValue(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("motorA")
	if err := txBus.Send(5, 0, WriteValueFrame(cmd, 77, true)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != WriteValue {
		t.Fatalf("Type = %v, want WriteValue", msg.Type)
	}
	if msg.Command != cmd || msg.Value != 77 || !msg.ResponseReq {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestBusSendReceiveReadCommand(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("battery")
	if err := txBus.Send(1, 0, ReadCommandFrame(cmd)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != ReadCommand {
		t.Fatalf("Type = %v, want ReadCommand", msg.Type)
	}
	if msg.Command != cmd {
		t.Fatalf("Command = %#x, want %#x", msg.Command, cmd)
	}
}

func TestBusSendReceiveResponseString(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("name")
	if err := txBus.Send(2, 0, RespondStringFrame(cmd, "totem-01")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != ResponseString {
		t.Fatalf("Type = %v, want ResponseString", msg.Type)
	}
	if msg.String != "totem-01" {
		t.Fatalf("String = %q, want totem-01", msg.String)
	}
}

func TestBusSendReceiveSubscribeOverridesType(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("battery")
	if err := txBus.Send(3, 0, SubscribeFrame(cmd, 250, false)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != Subscribe {
		t.Fatalf("Type = %v, want Subscribe (byte-field override)", msg.Type)
	}
}

func TestBusSendReceiveStatusResponses(t *testing.T) {
	cmd := Hash("motorA")
	for _, tc := range []struct {
		success bool
		want    MessageType
	}{
		{true, ResponseOk},
		{false, ResponseFail},
	} {
		sender := &captureSender{}
		txBus := NewBus(sender, DefaultConfig())
		if err := txBus.Send(4, 0, RespondStatusFrame(cmd, tc.success, 0)); err != nil {
			t.Fatalf("Send: %v", err)
		}
		rxBus := NewBus(nil, DefaultConfig())
		msg := deliverAll(t, rxBus, sender.frames)
		if msg.Type != tc.want {
			t.Fatalf("Type = %v, want %v", msg.Type, tc.want)
		}
	}
}

func TestBusSendReceivePing(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	if err := txBus.Send(6, 0, PingRequestFrame()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != RequestPing {
		t.Fatalf("Type = %v, want RequestPing", msg.Type)
	}
	if !msg.ResponseReq {
		t.Fatal("a ping request should report ResponseReq true")
	}
}

func TestBusSendReceiveRequestValueOverridesType(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("battery")
	if err := txBus.Send(7, 0, RequestValueFrame(cmd)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != RequestValue {
		t.Fatalf("Type = %v, want RequestValue (byte-field override)", msg.Type)
	}
	if msg.Command != cmd {
		t.Fatalf("Command = %#x, want %#x", msg.Command, cmd)
	}
}

func TestBusSendReceiveRequestStringOverridesType(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("name")
	if err := txBus.Send(7, 0, RequestStringFrame(cmd)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != RequestString {
		t.Fatalf("Type = %v, want RequestString (byte-field override)", msg.Type)
	}
}

func TestBusSendReceiveSendValueOverridesType(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("motorA")
	if err := txBus.Send(8, 0, SendValueFrame(cmd, 42)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != SendValue {
		t.Fatalf("Type = %v, want SendValue (byte-field override)", msg.Type)
	}
	if msg.Value != 42 {
		t.Fatalf("Value = %d, want 42", msg.Value)
	}
}

func TestBusSendReceiveSendStringOverridesType(t *testing.T) {
	sender := &captureSender{}
	txBus := NewBus(sender, DefaultConfig())
	cmd := Hash("name")
	if err := txBus.Send(8, 0, SendStringFrame(cmd, "totem-02")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	rxBus := NewBus(nil, DefaultConfig())
	msg := deliverAll(t, rxBus, sender.frames)
	if msg.Type != SendString {
		t.Fatalf("Type = %v, want SendString (byte-field override)", msg.Type)
	}
	if msg.String != "totem-02" {
		t.Fatalf("String = %q, want totem-02", msg.String)
	}
}

func TestClassifyUndefinedOnUnknownByteValue(t *testing.T) {
	var d Data
	d.SetByte(250) // not Subscribe/ResponseOk/ResponseFail
	m := classify(1, 0, true, false, &d)
	if m.Type != Undefined {
		t.Fatalf("Type = %v, want Undefined for an unrecognized byte value", m.Type)
	}
}

func TestBusSendRejectsInvalidAddress(t *testing.T) {
	bus := NewBus(&captureSender{}, DefaultConfig())
	if err := bus.Send(5000, 0, PingRequestFrame()); err != ErrInvalidAddress {
		t.Fatalf("Send with number=5000: got %v, want ErrInvalidAddress", err)
	}
}

func TestBusReaderPoolOverflow(t *testing.T) {
	cfg := Config{ReaderPoolSize: 1, ReaderBufferSize: 64}
	bus := NewBus(nil, cfg)
	// Begin a Compound reassembly for module 1 that never completes...
	var d Data
	d.SetCommandString("battery")
	w := NewWriter(&d, 1, 0)
	f1, _ := w.NextFrame()
	if _, _, result := bus.ProcessIncoming(f1.ID, f1.Data[:f1.Len]); result != ResultOK {
		t.Fatalf("priming frame result = %v, want ResultOK (more continuation expected)", result)
	}
	// ...then a frame from a different module should find no free slot.
	ping := PingFrame(2, 0, true)
	if _, _, result := bus.ProcessIncoming(ping.ID, ping.Data[:ping.Len]); result != ResultErrBufOverflow {
		t.Fatalf("second module's frame result = %v, want ResultErrBufOverflow", result)
	}
}
