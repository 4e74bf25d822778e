package module

import (
	"testing"
	"time"

	"github.com/GoAethereal/cancel"
	"github.com/totemmaker/totembus-go"
	"github.com/totemmaker/totembus-go/network"
)

// loopbackTransport feeds every frame it "sends" straight back into the
// owning Network, simulating a single-wire CAN bus shared by the
// controller and the board it addresses — sufficient to exercise a
// Responder acting as that board without a real link.
type loopbackTransport struct {
	net *network.Network
}

func (l *loopbackTransport) SendFrame(f totembus.Frame) error {
	l.net.HandleFrame(f.ID, f.Data[:f.Len])
	return nil
}

func (l *loopbackTransport) Close() error { return nil }

// withTimeout builds a cancel.Context that cancels itself after d,
// standing in for the test-only equivalent of context.WithTimeout.
func withTimeout(d time.Duration) (cancel.Context, func()) {
	ctx := cancel.New()
	timer := time.AfterFunc(d, ctx.Cancel)
	return ctx, func() { timer.Stop(); ctx.Cancel() }
}

func newLoopbackNetwork() *network.Network {
	lb := &loopbackTransport{}
	n := network.New(lb, network.Config{})
	lb.net = n
	return n
}

func TestCtrlWriteValueWaitsForStatus(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	var gotValue int32
	n.SetResponder(&network.Mux{
		OnWriteValue: func(command uint32, value int32) bool {
			gotValue = value
			return true
		},
	})

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	ctx, stop := withTimeout(time.Second)
	defer stop()
	if err := c.WriteValue(ctx, "motorA", 77, true); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	if gotValue != 77 {
		t.Fatalf("board received value = %d, want 77", gotValue)
	}
}

func TestCtrlWriteValueFailureStatus(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	n.SetResponder(&network.Mux{
		OnWriteValue: func(command uint32, value int32) bool { return false },
	})

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	ctx, stop := withTimeout(time.Second)
	defer stop()
	err := c.WriteValue(ctx, "motorA", 1, true)
	if _, ok := err.(*ErrStatusFailed); !ok {
		t.Fatalf("err = %v, want *ErrStatusFailed", err)
	}
}

func TestCtrlWriteValueNoWaitReturnsImmediately(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	ctx := cancel.New()
	if err := c.WriteValue(ctx, "motorA", 1, false); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
}

func TestCtrlReadCommandReturnsBoardValue(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	n.SetResponder(&network.Mux{
		OnReadCommand: func(command uint32) (int32, bool) {
			return 42, true
		},
	})

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	ctx, stop := withTimeout(time.Second)
	defer stop()
	value, err := c.ReadCommand(ctx, "battery")
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if value != 42 {
		t.Fatalf("value = %d, want 42", value)
	}
}

func TestCtrlNoResponseTimesOut(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	ctx, stop := withTimeout(20 * time.Millisecond)
	defer stop()
	_, err := c.ReadCommand(ctx, "battery")
	if _, ok := err.(*ErrNoResponse); !ok {
		t.Fatalf("err = %v, want *ErrNoResponse", err)
	}
}

func TestCtrlRequestValueReturnsBoardValue(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	n.SetResponder(&network.Mux{
		OnRequestValue: func(command uint32) (int32, bool) {
			return 9, true
		},
	})

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	ctx, stop := withTimeout(time.Second)
	defer stop()
	value, err := c.RequestValue(ctx, "battery")
	if err != nil {
		t.Fatalf("RequestValue: %v", err)
	}
	if value != 9 {
		t.Fatalf("value = %d, want 9", value)
	}
}

func TestCtrlSendValueReachesBoard(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	var gotValue int32
	n.SetResponder(&network.Mux{
		OnSendValue: func(command uint32, value int32) bool {
			gotValue = value
			return true
		},
	})

	c := NewCtrl(5, 0)
	c.Attach(n)
	defer c.Detach()

	if err := c.SendValue("motorA", 13); err != nil {
		t.Fatalf("SendValue: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if gotValue != 13 {
		t.Fatalf("board received value = %d, want 13", gotValue)
	}
}

func TestCtrlIgnoresMessagesFromOtherModules(t *testing.T) {
	n := newLoopbackNetwork()
	defer n.Close()

	var called bool
	c := NewCtrl(5, 0)
	c.OnMessage(func(command uint32, value int32, str string) { called = true })
	c.Attach(n)
	defer c.Detach()

	// Responding as module 9 instead of 5 must not reach c at all.
	if err := n.Send(9, 0, totembus.RespondValueFrame(totembus.Hash("x"), 1)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if called {
		t.Fatal("Ctrl.OnMessage fired for a message addressed to a different module")
	}
}
