package totembus

import "errors"

// ErrPayloadTooLarge is returned by a Data setter that would push the
// encoded size of the record past the 65535-byte wire limit (spec §3).
var ErrPayloadTooLarge = errors.New("totembus: data payload exceeds 65535 bytes")

// Flag bits of the Compound header byte, wire-identical to spec §6:
//
//	Bit(7) Byte(6) CmdStr(5) CmdInt(4) ValStr(3) ValInt(2) SizeEx(1) Extends(0)
const (
	FlagBit     byte = 0b10000000
	FlagByte    byte = 0b01000000
	FlagCmdStr  byte = 0b00100000
	FlagCmdInt  byte = 0b00010000
	FlagValStr  byte = 0b00001000
	FlagValInt  byte = 0b00000100
	FlagSizeEx  byte = 0b00000010
	FlagExtends byte = 0b00000001
)

// Data is a tagged record of the fields carried by one logical TotemBUS
// message. Unlike the original C++ "flags byte conflates many truth
// conditions" representation (spec §9), the mutual-exclusion invariants
// ({CmdStr,CmdInt} and {ValStr,ValInt} each have at most one member set)
// are enforced by the setter methods rather than left to caller discipline;
// the wire-level flags byte below stays byte-compatible with §6 so
// encode/decode are unaffected.
type Data struct {
	flags      byte
	dataByte   byte
	commandInt uint32
	commandStr string
	valueInt   int32
	valueStr   string
}

// IsEmpty reports whether the record carries no field at all — this is
// the ping encoding (spec §4.2 "if the Data is empty, emit a single
// zero-payload RTR-style ping frame").
func (d *Data) IsEmpty() bool {
	return d.flags&(FlagBit|FlagByte|FlagCmdStr|FlagCmdInt|FlagValStr|FlagValInt) == 0
}

// Flags returns the raw wire flags byte.
func (d *Data) Flags() byte { return d.flags }

// SetFlagsRaw overwrites the flags byte directly. Used by the reader when
// reconstructing a Data from a Compound header; application code should
// use the typed setters instead.
func (d *Data) SetFlagsRaw(flags byte) { d.flags = flags }

func (d *Data) is(flag byte) bool { return d.flags&flag == flag }
func (d *Data) set(flag byte)     { d.flags |= flag }
func (d *Data) clear(flag byte)   { d.flags &^= flag }

// Bit reports the single "response-required" bit piggy-backed into flags.
func (d *Data) Bit() bool { return d.is(FlagBit) }

// SetBit sets or clears the response-required bit.
func (d *Data) SetBit(v bool) {
	if v {
		d.set(FlagBit)
	} else {
		d.clear(FlagBit)
	}
}

// HasByte reports whether a MessageType discriminator byte is present.
func (d *Data) HasByte() bool   { return d.is(FlagByte) }
func (d *Data) Byte() byte      { return d.dataByte }
func (d *Data) HasCommandInt() bool { return d.is(FlagCmdInt) }
func (d *Data) HasCommandStr() bool { return d.is(FlagCmdStr) }
func (d *Data) HasValueInt() bool   { return d.is(FlagValInt) }
func (d *Data) HasValueStr() bool   { return d.is(FlagValStr) }
func (d *Data) SizeExtended() bool  { return d.is(FlagSizeEx) }
func (d *Data) Extends() bool       { return d.is(FlagExtends) }

// CommandHash returns the 32-bit command hash, valid only if HasCommandInt.
func (d *Data) CommandHash() uint32 { return d.commandInt }

// CommandString returns the string command form, valid only if HasCommandStr.
func (d *Data) CommandString() string { return d.commandStr }

// ValueInt returns the signed integer value, sign-extended from 8 bits
// unless SizeExtended is set, matching spec §3's getValueInt semantics.
func (d *Data) ValueInt() int32 {
	if d.is(FlagSizeEx) {
		return d.valueInt
	}
	return int32(int8(d.valueInt))
}

// ValueString returns the string value, valid only if HasValueStr.
func (d *Data) ValueString() string { return d.valueStr }

// SetByte sets the MessageType discriminator byte (used for Subscribe,
// ResponseOk/Fail, SendValue/String, RequestValue/String).
func (d *Data) SetByte(b byte) error {
	d.dataByte = b
	return d.prepare(FlagByte, false)
}

// SetCommandHash sets the command as a 32-bit hash, clearing any string
// command previously set (the two forms are mutually exclusive per spec §3).
func (d *Data) SetCommandHash(hash uint32) error {
	d.commandInt = hash
	d.clear(FlagCmdStr)
	return d.prepare(FlagCmdInt, false)
}

// SetCommandString sets the command as a human-readable string, clearing
// any hash command previously set.
func (d *Data) SetCommandString(s string) error {
	d.commandStr = s
	d.clear(FlagCmdInt)
	return d.prepare(FlagCmdStr, len(s) > 0xFF)
}

// SetValueInt sets an integer value, clearing any string value. SizeEx is
// set automatically whenever the value leaves the single-byte signed
// range, resolving the Open Question in spec §9 ("the implementation
// should err by setting SizeEx whenever the signed value leaves [-128,127]").
func (d *Data) SetValueInt(v int32) error {
	d.valueInt = v
	d.clear(FlagValStr)
	return d.prepare(FlagValInt, v < -128 || v > 127)
}

// SetValueString sets a string value, clearing any integer value.
func (d *Data) SetValueString(s string) error {
	d.valueStr = s
	d.clear(FlagValInt)
	return d.prepare(FlagValStr, len(s) > 0xFF)
}

// prepare applies item (and, if isExtReq, SizeEx) to a trial copy of the
// flags and rejects the mutation if the resulting encoded size would
// overflow the 65535-byte wire limit (spec §3's builder invariant).
func (d *Data) prepare(item byte, isExtReq bool) error {
	trial := d.flags
	if isExtReq {
		trial |= FlagSizeEx
	}
	trial |= item
	if d.sizeFor(trial) > 0xFFFF {
		return ErrPayloadTooLarge
	}
	d.flags = trial
	return nil
}

// Size returns the encoded payload size (excluding the packet-type/header
// framing overhead added by Writer), per spec §3's 65535-byte bound.
func (d *Data) Size() uint16 {
	return uint16(d.sizeFor(d.flags))
}

func (d *Data) sizeFor(flags byte) uint32 {
	var size uint32
	if flags&FlagCmdInt != 0 {
		size += 4
	}
	if flags&FlagCmdStr != 0 {
		size += uint32(len(d.commandStr)) + 1
	}
	if flags&FlagValInt != 0 {
		if flags&FlagSizeEx != 0 {
			size += 4
		} else {
			size += 1
		}
	}
	if flags&FlagValStr != 0 {
		size += uint32(len(d.valueStr)) + 1
	}
	return size
}
