package totembus

import "testing"

func TestDataIsEmptyWhenUnset(t *testing.T) {
	var d Data
	if !d.IsEmpty() {
		t.Fatal("zero-value Data should be empty (ping encoding)")
	}
	d.SetBit(true)
	if d.IsEmpty() {
		t.Fatal("Bit alone does not count toward emptiness in the protocol's ping test")
	}
}

func TestDataCommandMutualExclusion(t *testing.T) {
	var d Data
	if err := d.SetCommandHash(Hash("motorA")); err != nil {
		t.Fatalf("SetCommandHash: %v", err)
	}
	if !d.HasCommandInt() || d.HasCommandStr() {
		t.Fatal("expected CmdInt set, CmdStr clear")
	}
	if err := d.SetCommandString("motorA"); err != nil {
		t.Fatalf("SetCommandString: %v", err)
	}
	if d.HasCommandInt() || !d.HasCommandStr() {
		t.Fatal("setting CommandString must clear CmdInt")
	}
}

func TestDataValueMutualExclusion(t *testing.T) {
	var d Data
	if err := d.SetValueInt(42); err != nil {
		t.Fatalf("SetValueInt: %v", err)
	}
	if !d.HasValueInt() || d.HasValueStr() {
		t.Fatal("expected ValInt set, ValStr clear")
	}
	if err := d.SetValueString("hello"); err != nil {
		t.Fatalf("SetValueString: %v", err)
	}
	if d.HasValueInt() || !d.HasValueStr() {
		t.Fatal("setting ValueString must clear ValInt")
	}
}

func TestDataSizeExAutoSetOnOutOfByteRange(t *testing.T) {
	var d Data
	if err := d.SetValueInt(100); err != nil {
		t.Fatalf("SetValueInt(100): %v", err)
	}
	if d.SizeExtended() {
		t.Fatal("100 fits in a signed byte, SizeEx should not be set")
	}
	if err := d.SetValueInt(1000); err != nil {
		t.Fatalf("SetValueInt(1000): %v", err)
	}
	if !d.SizeExtended() {
		t.Fatal("1000 does not fit in a signed byte, SizeEx should be set")
	}
	if got := d.ValueInt(); got != 1000 {
		t.Fatalf("ValueInt() = %d, want 1000", got)
	}
}

func TestDataValueIntSignExtendsWithoutSizeEx(t *testing.T) {
	var d Data
	if err := d.SetValueInt(-5); err != nil {
		t.Fatalf("SetValueInt(-5): %v", err)
	}
	if d.SizeExtended() {
		t.Fatal("-5 fits in a signed byte, SizeEx should not be set")
	}
	if got := d.ValueInt(); got != -5 {
		t.Fatalf("ValueInt() = %d, want -5", got)
	}
}

func TestDataSetValueStringSetsSizeExOnLongString(t *testing.T) {
	var d Data
	long := make([]byte, 300)
	if err := d.SetValueString(string(long)); err != nil {
		t.Fatalf("SetValueString: %v", err)
	}
	if !d.SizeExtended() {
		t.Fatal("a value string over 255 bytes must set SizeEx")
	}
}

func TestDataRejectsOversizePayload(t *testing.T) {
	var d Data
	huge := make([]byte, 1<<16)
	if err := d.SetValueString(string(huge)); err != ErrPayloadTooLarge {
		t.Fatalf("SetValueString with 65536-byte string: got %v, want ErrPayloadTooLarge", err)
	}
}

func TestDataByteField(t *testing.T) {
	var d Data
	if err := d.SetByte(0x05); err != nil {
		t.Fatalf("SetByte: %v", err)
	}
	if !d.HasByte() || d.Byte() != 0x05 {
		t.Fatalf("Byte() = %#x, want 0x05 with HasByte true", d.Byte())
	}
}
