package labboard

import (
	"testing"
	"time"
)

func TestVoltageGetVINScalesMillivolts(t *testing.T) {
	p := newLoopPipe("IN:VIN:24500\n")
	b := NewBoard(New(p))
	ctx, cancelFn := withTimeout(time.Second)
	defer cancelFn()
	v, err := b.Voltage.GetVIN(ctx)
	if err != nil {
		t.Fatalf("GetVIN: %v", err)
	}
	if v != 24.5 {
		t.Fatalf("GetVIN = %v, want 24.5", v)
	}
}

func TestVoltageSetDAC1FormatsMillivolts(t *testing.T) {
	p := newLoopPipe("")
	b := NewBoard(New(p))
	if err := b.Voltage.SetDAC1(1.5); err != nil {
		t.Fatalf("SetDAC1: %v", err)
	}
	if got := p.writes.String(); got != "LB:OUT:DAC1:1500\n" {
		t.Fatalf("wrote %q", got)
	}
}

func TestLEDsGetReadsBitFromBinary(t *testing.T) {
	p := newLoopPipe("LED:5\n")
	b := NewBoard(New(p))
	ctx, cancelFn := withTimeout(time.Second)
	defer cancelFn()
	on, err := b.LED.Get(ctx, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !on {
		t.Fatal("expected LED 0 on (bit 0 of 0x5 set)")
	}
	on, err = b.LED.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if on {
		t.Fatal("expected LED 1 off (bit 1 of 0x5 clear)")
	}
}

func TestDisplayClearWritesEmptyText(t *testing.T) {
	p := newLoopPipe("")
	b := NewBoard(New(p))
	if err := b.Display.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := p.writes.String(); got != "LB:DISP:TXT:\n" {
		t.Fatalf("wrote %q", got)
	}
}
