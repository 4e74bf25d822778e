package motor

import (
	"testing"
	"time"

	"github.com/totemmaker/totembus-go"
	"github.com/totemmaker/totembus-go/module"
	"github.com/totemmaker/totembus-go/network"
)

type loopbackTransport struct {
	net *network.Network
}

func (l *loopbackTransport) SendFrame(f totembus.Frame) error {
	l.net.HandleFrame(f.ID, f.Data[:f.Len])
	return nil
}

func (l *loopbackTransport) Close() error { return nil }

func newTestDriver(t *testing.T) (*Driver, *network.Network, chan [2]int32) {
	t.Helper()
	lb := &loopbackTransport{}
	n := network.New(lb, network.Config{})
	lb.net = n

	writes := make(chan [2]int32, 64)
	n.SetResponder(&network.Mux{
		OnWriteValue: func(command uint32, value int32) bool {
			writes <- [2]int32{int32(command), value}
			return true
		},
	})

	ctrl := module.NewCtrl(1, 0)
	ctrl.Attach(n)
	t.Cleanup(func() { ctrl.Detach(); n.Close() })

	return NewDriver(ctrl, true), n, writes
}

func recvWrite(t *testing.T, ch chan [2]int32) [2]int32 {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a motor write")
		return [2]int32{}
	}
}

func TestDriverMoveStraightSendsEqualPower(t *testing.T) {
	d, _, writes := newTestDriver(t)
	d.AddFrontLeft("motorA", 20, 100, false)
	d.AddFrontRight("motorB", 20, 100, false)
	d.AddRearLeft("motorC", 20, 100, false)
	d.AddRearRight("motorD", 20, 100, false)

	if err := d.Move(50, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	w := recvWrite(t, writes)
	if uint32(w[0]) != hashMotorABCD {
		t.Fatalf("command = %#x, want motorABCD batch", w[0])
	}
	// All four wheels should be equal and nonzero for straight drive.
	packed := w[1]
	a := int8(packed >> 24)
	b := int8(packed >> 16)
	c := int8(packed >> 8)
	e := int8(packed)
	if a != b || b != c || c != e {
		t.Fatalf("expected equal wheel power driving straight, got %d %d %d %d", a, b, c, e)
	}
	if a == 0 {
		t.Fatal("expected nonzero wheel power")
	}
}

func TestDriverIndividualCommandBypassesBatching(t *testing.T) {
	d, _, writes := newTestDriver(t)
	d.AddFrontLeft("customLeft", 0, 100, false)
	d.AddFrontRight("customRight", 0, 100, false)
	d.AddRearLeft("customRearLeft", 0, 100, false)
	d.AddRearRight("customRearRight", 0, 100, false)

	if err := d.Move(100, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	w := recvWrite(t, writes)
	if uint32(w[0]) == hashMotorABCD {
		t.Fatal("non-reserved command names must not batch into motorABCD")
	}
}

func TestDriverBrakeCutsPowerWhenGreaterOrEqual(t *testing.T) {
	d, _, writes := newTestDriver(t)
	d.AddFrontLeft("motorA", 0, 100, false)
	d.AddFrontRight("motorB", 0, 100, false)
	d.AddRearLeft("motorC", 0, 100, false)
	d.AddRearRight("motorD", 0, 100, false)

	if err := d.Move(50, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	recvWrite(t, writes)
	if err := d.BrakeAll(100); err != nil {
		t.Fatalf("BrakeAll: %v", err)
	}
	w := recvWrite(t, writes)
	packed := w[1]
	if int8(packed>>24) != 0 {
		t.Fatalf("full brake should zero power, got %d", int8(packed>>24))
	}
}

func TestDriverServoMapsAroundCenter(t *testing.T) {
	d, _, writes := newTestDriver(t)
	d.AddServo(0, "steer", -50, 0, 50, false)

	if err := d.MoveServo(0, 100); err != nil {
		t.Fatalf("MoveServo: %v", err)
	}
	w := recvWrite(t, writes)
	if w[1] != 50 {
		t.Fatalf("full-right servo position = %d, want 50", w[1])
	}
}

func TestDriverServoUnconfiguredChannelIsNoop(t *testing.T) {
	d, _, writes := newTestDriver(t)
	if err := d.MoveServo(1, 100); err != nil {
		t.Fatalf("MoveServo: %v", err)
	}
	select {
	case w := <-writes:
		t.Fatalf("unexpected write for unconfigured servo: %+v", w)
	case <-time.After(50 * time.Millisecond):
	}
}
