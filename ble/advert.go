// Package ble discovers and tunnels TotemBUS traffic over the BLE GATT
// link totem-ble-scanner.h/totem-ble-module.h define: a 3-byte color,
// 2-byte model hash and 1-byte module number packed into the
// manufacturer-specific advertisement field of service
// bae50001-a471-446a-bc43-4b0a60512636, plus a CAN-over-GATT tunnel on
// characteristics bae50002 (TX) / bae50003 (RX) of that same service.
package ble

import "fmt"

// advDataSize is sizeof(TotemAdvData): 3 bytes color + 2 bytes model +
// 1 byte number, packed with no padding.
const advDataSize = 6

// AdvertisedData is the manufacturer-specific payload advertised by a
// board: its RGB identification color, its model name hash and its
// module number.
type AdvertisedData struct {
	Color  uint32 // low 24 bits significant
	Model  uint16
	Number uint8
}

// ParseManufacturerData decodes the TotemAdvData record from raw BLE
// manufacturer-specific data, which still carries its 2-byte company
// identifier prefix. A 5-byte record (one short of advDataSize) is the
// legacy format that omits the module number; TotemBLEDevice::
// setManufacturerData defaults it to 3 in that case.
func ParseManufacturerData(raw []byte) (AdvertisedData, bool) {
	var data AdvertisedData
	if len(raw) < 2 {
		return data, false
	}
	body := raw[2:]
	switch len(body) {
	case advDataSize - 1:
		data.Color = uint32(body[0]) | uint32(body[1])<<8 | uint32(body[2])<<16
		data.Model = uint16(body[3]) | uint16(body[4])<<8
		data.Number = 3
		return data, true
	case advDataSize:
		data.Color = uint32(body[0]) | uint32(body[1])<<8 | uint32(body[2])<<16
		data.Model = uint16(body[3]) | uint16(body[4])<<8
		data.Number = body[5]
		return data, true
	default:
		return data, false
	}
}

func (a AdvertisedData) String() string {
	return fmt.Sprintf("module %d (model %#04x, color %#06x)", a.Number, a.Model, a.Color)
}
