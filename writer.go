package totembus

// Frame is one CAN frame's worth of wire bytes: an extended 29-bit
// identifier, up to 8 payload bytes, and the payload length actually used.
type Frame struct {
	ID   uint32
	Data [8]byte
	Len  uint8
}

// PingFrame builds the zero-payload RTR ping/pong frame for a module
// address (spec §4.2, §4.6).
func PingFrame(number, serial uint16, isRequest bool) Frame {
	id := CANIdentifier(number, serial)
	id |= bitRTR
	if isRequest {
		id |= bitRequest
	}
	id |= bitEXT
	return Frame{ID: id, Len: 0}
}

// Writer serializes one Data record into a sequence of CAN frames,
// choosing Basic framing when the record is exactly {CmdInt,ValInt} and
// Compound (optionally Compound+CompoundExt continuations) otherwise.
// Call NextFrame repeatedly; it returns ok=false once the record is
// fully drained.
type Writer struct {
	data *Data
	id   uint32

	// writeFunction mirrors the original state machine: -1 means "start a
	// new logical message", 0..3 index the four writable fields
	// (CmdInt,ValInt,CmdStr,ValStr) during continuation frames, 5 means
	// "the single Basic frame already went out, next call ends the message".
	writeFunction int
	dataIndex     uint16
}

// NewWriter prepares a Writer for the module addressed by number/serial.
// data must outlive the Writer and not be mutated while frames are
// still being drained.
func NewWriter(data *Data, number, serial uint16) *Writer {
	return &Writer{data: data, id: CANIdentifier(number, serial), writeFunction: -1}
}

// SetRequest sets or clears the request bit of the frames this Writer
// produces (the meaning of request vs. response depends on direction).
func (w *Writer) SetRequest(isRequest bool) {
	if isRequest {
		w.id |= bitRequest
	} else {
		w.id &^= bitRequest
	}
}

// IsRequest reports the current request bit.
func (w *Writer) IsRequest() bool { return w.id&bitRequest != 0 }

// NextFrame produces the next CAN frame for the record. ok is false once
// nothing more remains to send (either the single Basic frame already
// went out, or the last Compound/CompoundExt continuation did).
func (w *Writer) NextFrame() (frame Frame, ok bool) {
	n := w.prepareNextPacket(frame.Data[:])
	frame.Len = uint8(n)
	frame.ID = w.id
	w.id = setPacketType(w.id, PacketCompoundExt)
	return frame, n != 0
}

type writeStream struct {
	buffer []byte
	index  uint16
}

func (s *writeStream) remaining() uint16 { return 8 - s.index }

func (w *Writer) prepareNextPacket(buf []byte) uint16 {
	s := &writeStream{buffer: buf}
	if w.writeFunction == -1 {
		w.dataIndex = 0
		flags := w.data.Flags()
		if flags&^FlagSizeEx == FlagCmdInt|FlagValInt {
			w.id = setPacketType(w.id, PacketBasic)
			w.writeValue(s, uint32(w.data.CommandHash()), 4)
			w.writeValue(s, uint32(w.rawValueInt()), valueIntWireSize(w.data))
			w.writeFunction = 5
			return s.index
		}
		w.id = setPacketType(w.id, PacketCompound)
		dataSize := w.data.Size()
		flagsByte := flags
		w.writeValue(s, uint32(flagsByte), 1)
		if flags&FlagByte != 0 {
			w.writeValue(s, uint32(w.data.Byte()), 1)
		}
		if flags&FlagCmdStr != 0 {
			w.writeValue(s, uint32(len(w.data.CommandString())), lenWireSize(w.data))
		}
		if flags&FlagValStr != 0 {
			w.writeValue(s, uint32(len(w.data.ValueString())), lenWireSize(w.data))
		}
		if s.remaining() < dataSize {
			w.data.set(FlagExtends)
			buf[0] = w.data.Flags()
			w.writeValue(s, uint32(dataSize), lenWireSize(w.data))
		}
	} else if w.writeFunction == 5 {
		w.writeFunction = -1
		return 0
	}
	if w.writeFunction == -1 {
		w.writeFunction = 0
		w.dataIndex = 0
	}
	for w.writeFunction < 4 && s.remaining() > 0 {
		if w.writeField(s, w.writeFunction) {
			w.writeFunction++
		}
	}
	return s.index
}

// rawValueInt returns the stored value truncated/widened the way the
// original writer's raw valueInt field would be, ahead of masking to
// 1 or 4 bytes by writeValue.
func (w *Writer) rawValueInt() int32 { return w.data.valueInt }

func valueIntWireSize(d *Data) uint16 {
	if d.SizeExtended() {
		return 4
	}
	return 1
}

func lenWireSize(d *Data) uint16 {
	if d.SizeExtended() {
		return 2
	}
	return 1
}

// writeField writes one of the four optional Compound fields
// (0=CmdInt,1=ValInt,2=CmdStr,3=ValStr), resuming mid-field across calls
// via dataIndex. It returns true once that field is fully written (or
// was absent, a no-op success).
func (w *Writer) writeField(s *writeStream, field int) bool {
	switch field {
	case 0:
		if w.data.HasCommandInt() {
			return w.writeValue(s, w.data.CommandHash(), 4)
		}
		return true
	case 1:
		if w.data.HasValueInt() {
			return w.writeValue(s, uint32(w.rawValueInt()), valueIntWireSize(w.data))
		}
		return true
	case 2:
		if w.data.HasCommandStr() {
			return w.writeString(s, w.data.CommandString())
		}
		return true
	case 3:
		if w.data.HasValueStr() {
			return w.writeString(s, w.data.ValueString())
		}
		return true
	}
	return true
}

func (w *Writer) writeValue(s *writeStream, value uint32, bytes uint16) bool {
	for ; w.dataIndex < bytes && s.remaining() > 0; w.dataIndex, s.index = w.dataIndex+1, s.index+1 {
		s.buffer[s.index] = byte(value >> (w.dataIndex * 8))
	}
	if w.dataIndex == bytes {
		w.dataIndex = 0
		return true
	}
	return false
}

func (w *Writer) writeString(s *writeStream, str string) bool {
	for ; w.dataIndex < uint16(len(str)) && s.remaining() > 0; w.dataIndex, s.index = w.dataIndex+1, s.index+1 {
		s.buffer[s.index] = str[w.dataIndex]
	}
	if int(w.dataIndex) == len(str) && s.remaining() > 0 {
		s.buffer[s.index] = 0
		s.index++
		w.dataIndex = 0
		return true
	}
	return false
}
