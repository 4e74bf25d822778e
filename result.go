package totembus

// Result is the outcome of feeding one CAN frame into a Reader. It
// satisfies error so callers that only care about failure can treat it
// as a plain Go error; callers that need to distinguish "still
// assembling" from "frame complete" from a specific failure kind
// switch on the value directly.
type Result int

const (
	// ResultOK means the frame was consumed and more frames are needed
	// before a full Message is available.
	ResultOK Result = iota
	// ResultReceived means a full Message is now available.
	ResultReceived
	// ResultErrProtocol means the CAN identifier isn't a recognized
	// TotemBUS v1 or v2 frame (Packet.isV2 failed).
	ResultErrProtocol
	// ResultErrExtMissing means a non-CompoundExt frame arrived while a
	// multi-frame Compound reassembly was still in progress.
	ResultErrExtMissing
	// ResultErrExtReceived means a CompoundExt continuation frame arrived
	// with no Compound reassembly in progress to continue.
	ResultErrExtReceived
	// ResultErrBufOverflow means no reader-pool slot was free to start a
	// new reassembly (or, within a slot, the assembly buffer is full).
	ResultErrBufOverflow
	// ResultErrDataOverflow means more payload bytes arrived than the
	// Compound header declared.
	ResultErrDataOverflow
	// ResultErrDataUnderflow means the declared payload size was reached
	// but the trailing field layout failed to parse.
	ResultErrDataUnderflow
	// ResultErrDataInUse means the slot's previously assembled Message
	// has not yet been released by the caller.
	ResultErrDataInUse
	// ResultErrCompound means the Compound header itself failed to parse.
	ResultErrCompound
	// ResultErrBasic means a Basic frame's payload length didn't match
	// either the 5-byte or 8-byte (SizeEx) Basic encoding.
	ResultErrBasic
)

func (r Result) Error() string {
	switch r {
	case ResultOK:
		return "totembus: frame accepted, assembly in progress"
	case ResultReceived:
		return "totembus: message complete"
	case ResultErrProtocol:
		return "totembus: unrecognized protocol version"
	case ResultErrExtMissing:
		return "totembus: expected CompoundExt continuation frame"
	case ResultErrExtReceived:
		return "totembus: unexpected CompoundExt continuation frame"
	case ResultErrBufOverflow:
		return "totembus: reassembly buffer overflow"
	case ResultErrDataOverflow:
		return "totembus: payload exceeds declared size"
	case ResultErrDataUnderflow:
		return "totembus: payload fields underrun declared size"
	case ResultErrDataInUse:
		return "totembus: previous message not yet released"
	case ResultErrCompound:
		return "totembus: malformed compound header"
	case ResultErrBasic:
		return "totembus: malformed basic frame"
	default:
		return "totembus: unknown result"
	}
}

// done reports whether result is terminal for the current slot (either
// a completed message or an unrecoverable parse failure requiring the
// assembly state to be discarded).
func (r Result) done() bool {
	return r != ResultOK
}

// failed reports whether result represents an error rather than
// ResultOK/ResultReceived.
func (r Result) failed() bool {
	return r != ResultOK && r != ResultReceived
}

// Failed reports whether result represents an error rather than
// ResultOK/ResultReceived. Exported for callers outside this package
// (network, ble) that need to decide whether to log a dropped frame.
func (r Result) Failed() bool {
	return r.failed()
}
