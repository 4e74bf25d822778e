package totembus

// PacketInfo is the per-reassembly-slot state a Reader exposes once a
// frame sequence completes: which module it came from and the decoded
// Data. Release must be called once the caller is done with Data so the
// slot can accept the next reassembly (mirrors the original's RAII
// Packet::~Packet calling PacketInfo::destroy()).
type PacketInfo struct {
	Number    uint16
	Serial    uint16
	Data      Data
	IsRequest bool
	inUse     bool
}

// IsPing reports whether the completed packet carries no fields at all —
// the ping/pong encoding (an RTR frame with a zero flags byte).
func (p *PacketInfo) IsPing() bool { return p.Data.flags == 0 }

// Release frees the slot so a new reassembly may begin. Callers must
// call it exactly once after consuming a ResultReceived packet.
func (p *PacketInfo) Release() { p.inUse = false }

type readStream struct {
	buffer  []byte
	fill    uint16
	index   uint16
	success bool
}

func (s *readStream) remaining() uint16 { return s.fill - s.index }

func (s *readStream) reset() {
	s.fill = 0
	s.index = 0
	s.success = true
}

// Reader reassembles one logical TotemBUS message (Basic, or
// Compound/CompoundExt) out of the CAN frames belonging to a single
// module address. A Bus owns a small pool of these, one per
// concurrently in-flight sender (spec §4.3/§5).
type Reader struct {
	stream                     readStream
	dataSize                   uint16
	commandLength, valueLength uint16
	info                       PacketInfo
	discardExtended            bool
}

// NewReader allocates a Reader with the given reassembly buffer size.
// Frames whose combined Compound payload would exceed bufSize yield
// ResultErrBufOverflow.
func NewReader(bufSize int) *Reader {
	r := &Reader{}
	r.stream.buffer = make([]byte, bufSize)
	r.stream.success = true
	return r
}

// IsUsed reports whether this Reader currently holds partial frame state
// — used by the pool to pick a free slot, distinct from Info().inUse
// which latches a *completed* message until Release.
func (r *Reader) IsUsed() bool { return r.stream.fill != 0 }

// ForModule reports whether this Reader's in-progress reassembly belongs
// to the module addressed by id.
func (r *Reader) ForModule(id uint32) bool {
	if !r.IsUsed() {
		return false
	}
	return r.info.Number == moduleNumberOf(id) && r.info.Serial == moduleSerialOf(id)
}

// Info returns the slot's packet state. Valid to read fields after a
// ResultReceived; call Info().Release() once done with it.
func (r *Reader) Info() *PacketInfo { return &r.info }

// ProcessFrame feeds one CAN frame into the reassembly. Result reports
// whether the message is still assembling (ResultOK), complete
// (ResultReceived), or failed. On failure the slot is reset and ready
// for the next frame sequence; the caller should log the Result but
// need not take further action.
func (r *Reader) ProcessFrame(id uint32, data []byte) Result {
	if !IsV2(id) {
		return ResultErrProtocol
	}
	if r.discardExtended {
		if isCompoundExt(id) {
			return ResultOK
		}
		r.discardExtended = false
	}
	if r.info.inUse {
		return ResultErrDataInUse
	}
	result := r.process(id, data)
	switch {
	case result == ResultReceived:
		r.info.inUse = true
		r.stream.reset()
	case result.failed():
		r.discardExtended = true
		r.stream.reset()
	}
	return result
}

func (r *Reader) process(id uint32, data []byte) Result {
	if r.stream.fill == 0 {
		copy(r.stream.buffer[r.stream.fill:], data)
		r.stream.fill += uint16(len(data))
		r.info.Data.flags = 0
		r.info.Number = moduleNumberOf(id)
		r.info.Serial = moduleSerialOf(id)
		r.info.IsRequest = isRequestFrame(id)
		if isRTRCAN(id) {
			return ResultReceived
		}
		switch packetType(id) {
		case PacketBasic:
			if !r.readPacketBasic() {
				return ResultErrBasic
			}
			return ResultReceived
		case PacketCompound:
			if !r.readCompoundHeader() {
				return ResultErrCompound
			}
		default:
			return ResultErrExtReceived
		}
		data = data[r.stream.index:]
		r.stream.reset()
	}
	if r.stream.fill != 0 && packetType(id) != PacketCompoundExt {
		return ResultErrExtMissing
	}
	if int(r.stream.fill)+len(data) > len(r.stream.buffer) {
		return ResultErrBufOverflow
	}
	copy(r.stream.buffer[r.stream.fill:], data)
	r.stream.fill += uint16(len(data))
	if r.info.IsRequest != isRequestFrame(id) {
		return ResultOK
	}
	if r.stream.fill-r.stream.index == r.dataSize {
		if !r.parse() {
			return ResultErrDataUnderflow
		}
		return ResultReceived
	} else if r.stream.fill-r.stream.index > r.dataSize {
		return ResultErrDataOverflow
	}
	return ResultOK
}

func (r *Reader) readPacketBasic() bool {
	switch r.stream.remaining() {
	case 8:
		r.info.Data.set(FlagSizeEx)
	case 5:
	default:
		return false
	}
	r.info.Data.set(FlagCmdInt)
	r.info.Data.set(FlagValInt)
	r.info.Data.commandInt = r.readValue(4)
	size := uint16(1)
	if r.info.Data.is(FlagSizeEx) {
		size = 4
	}
	r.info.Data.valueInt = int32(r.readValue(size))
	return r.stream.success
}

func (r *Reader) readCompoundHeader() bool {
	r.info.Data.flags = byte(r.readValue(1))
	bytesCount := uint16(1)
	if r.info.Data.is(FlagSizeEx) {
		bytesCount = 2
	}
	if r.info.Data.is(FlagByte) {
		r.info.Data.dataByte = byte(r.readValue(1))
	}
	if r.info.Data.is(FlagCmdStr) {
		r.commandLength = uint16(r.readValue(bytesCount))
	}
	if r.info.Data.is(FlagValStr) {
		r.valueLength = uint16(r.readValue(bytesCount))
	}
	if r.info.Data.is(FlagExtends) {
		r.dataSize = uint16(r.readValue(bytesCount))
	} else {
		r.dataSize = r.stream.remaining()
	}
	return r.stream.success
}

func (r *Reader) parse() bool {
	if r.info.Data.is(FlagCmdInt) {
		r.info.Data.commandInt = r.readValue(4)
	}
	if r.info.Data.is(FlagValInt) {
		size := uint16(1)
		if r.info.Data.is(FlagSizeEx) {
			size = 4
		}
		r.info.Data.valueInt = int32(r.readValue(size))
	}
	if r.info.Data.is(FlagCmdStr) {
		r.info.Data.commandStr = r.readString(r.commandLength)
	}
	if r.info.Data.is(FlagValStr) {
		r.info.Data.valueStr = r.readString(r.valueLength)
	}
	return r.stream.success
}

func (r *Reader) readValue(bytes uint16) uint32 {
	var value uint32
	if r.stream.remaining() >= bytes && r.stream.success {
		for b := uint16(0); b < bytes; b++ {
			value |= uint32(r.stream.buffer[r.stream.index+b]) << (b * 8)
		}
		r.stream.index += bytes
	} else {
		r.stream.success = false
	}
	return value
}

func (r *Reader) readString(length uint16) string {
	if r.stream.remaining() >= length+1 && r.stream.buffer[r.stream.index+length] == 0 && r.stream.success {
		s := string(r.stream.buffer[r.stream.index : r.stream.index+length])
		r.stream.index += length + 1
		return s
	}
	r.stream.success = false
	return ""
}
