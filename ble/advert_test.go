package ble

import "testing"

func TestParseManufacturerDataModern(t *testing.T) {
	raw := []byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0x10, 0x20, 0x07}
	data, ok := ParseManufacturerData(raw)
	if !ok {
		t.Fatal("expected ok")
	}
	if data.Color != 0x030201 {
		t.Fatalf("Color = %#x, want 0x030201", data.Color)
	}
	if data.Model != 0x2010 {
		t.Fatalf("Model = %#x, want 0x2010", data.Model)
	}
	if data.Number != 7 {
		t.Fatalf("Number = %d, want 7", data.Number)
	}
}

func TestParseManufacturerDataLegacyDefaultsNumber(t *testing.T) {
	raw := []byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0x10, 0x20}
	data, ok := ParseManufacturerData(raw)
	if !ok {
		t.Fatal("expected ok")
	}
	if data.Number != 3 {
		t.Fatalf("Number = %d, want default 3", data.Number)
	}
}

func TestParseManufacturerDataRejectsWrongLength(t *testing.T) {
	if _, ok := ParseManufacturerData([]byte{0xaa, 0xbb, 0x01}); ok {
		t.Fatal("expected rejection of malformed body")
	}
}
