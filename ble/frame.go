package ble

import (
	"fmt"

	"github.com/totemmaker/totembus-go"
)

// maxDataLen is the largest CAN payload a packet can carry, same as the
// wire frame's 8-byte classic CAN data field.
const maxDataLen = 8

// EncodePacket serializes f into CanPacket.h's extended wire form: a
// 4-byte big-endian CAN identifier, a 1-byte length, then up to 8 data
// bytes. TotemBUS always sets the EXT bit (see the CANIdentifier
// encoding), so only the extended form is produced. The standard/legacy
// packing is neither produced here nor accepted by DecodePacket.
func EncodePacket(f totembus.Frame) []byte {
	n := int(f.Len)
	if n > maxDataLen {
		n = maxDataLen
	}
	buf := make([]byte, 5+n)
	buf[0] = byte(f.ID >> 24)
	buf[1] = byte(f.ID >> 16)
	buf[2] = byte(f.ID >> 8)
	buf[3] = byte(f.ID)
	buf[4] = byte(n)
	copy(buf[5:], f.Data[:n])
	return buf
}

// DecodePacket parses a CAN-over-BLE packet. Only the extended form
// (top bit of the first byte set, per isExtended) is understood; a
// legacy standard-frame packet is rejected rather than silently
// misparsed, since no TotemBUS peer emits one.
func DecodePacket(buf []byte) (id uint32, data [8]byte, length uint8, err error) {
	if len(buf) < 5 {
		return 0, data, 0, fmt.Errorf("ble: packet too short: %d bytes", len(buf))
	}
	if buf[0]&0x80 == 0 {
		return 0, data, 0, fmt.Errorf("ble: standard (non-extended) packets are not supported")
	}
	id = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	length = buf[4]
	if length > maxDataLen {
		length = maxDataLen
	}
	if len(buf) < 5+int(length) {
		return 0, data, 0, fmt.Errorf("ble: packet declares %d data bytes but only has %d", length, len(buf)-5)
	}
	copy(data[:], buf[5:5+int(length)])
	return id, data, length, nil
}
