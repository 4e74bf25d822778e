package ble

import "testing"

func TestRegistryFiresOnceBothManufacturerAndNameSeen(t *testing.T) {
	r, err := NewRegistry(8)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	manuf := []byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0x10, 0x20, 0x05}

	if _, ready := r.Observe("AA:BB", manuf, true, "", false); ready {
		t.Fatal("should not be ready with only manufacturer data")
	}
	dev, ready := r.Observe("AA:BB", nil, false, "totem-board", true)
	if !ready {
		t.Fatal("expected ready once both pieces observed")
	}
	if dev.Name != "totem-board" || dev.Adv.Number != 5 {
		t.Fatalf("unexpected device: %+v", dev)
	}
}

func TestRegistryDoesNotReReportAfterReady(t *testing.T) {
	r, _ := NewRegistry(8)
	manuf := []byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0x10, 0x20, 0x05}
	r.Observe("AA:BB", manuf, true, "totem-board", true)

	if _, ready := r.Observe("AA:BB", manuf, true, "totem-board", true); ready {
		t.Fatal("should not report readiness twice for the same address")
	}
}

func TestRegistryTracksAddressesIndependently(t *testing.T) {
	r, _ := NewRegistry(8)
	manuf := []byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0x10, 0x20, 0x05}
	r.Observe("AA:AA", manuf, true, "", false)

	if _, ready := r.Observe("BB:BB", nil, false, "other", true); ready {
		t.Fatal("unrelated address should not be ready from only a name")
	}
}

func TestRegistryResetForgetsAddresses(t *testing.T) {
	r, _ := NewRegistry(8)
	manuf := []byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0x10, 0x20, 0x05}
	r.Observe("AA:BB", manuf, true, "totem-board", true)
	r.Reset()

	if _, ok := r.Lookup("AA:BB"); ok {
		t.Fatal("expected Reset to forget prior observations")
	}
}
