package totembus

// MessageType classifies a decoded Message the way the wire protocol's
// Data record and request/ping bits determine it (spec §4.5). The
// classification order below matters and follows the original encoder
// exactly: ping detection first, then the ReadCommand/Write-or-Response
// value/string rules, and only at the very end an unconditional override
// when the Byte field is present — which wins over everything decided
// above it, but is itself restricted to {Subscribe, ResponseOk,
// ResponseFail, SendValue, SendString, RequestValue, RequestString}; any
// other byte value collapses the message to Undefined.
type MessageType int

const (
	Undefined MessageType = iota
	WriteCommand
	WriteValue
	WriteString
	ReadCommand
	RequestPing
	Subscribe
	ResponsePing
	ResponseValue
	ResponseString
	ResponseOk
	ResponseFail
	SendValue
	SendString
	RequestValue
	RequestString
)

func (t MessageType) String() string {
	switch t {
	case WriteCommand:
		return "WriteCommand"
	case WriteValue:
		return "WriteValue"
	case WriteString:
		return "WriteString"
	case ReadCommand:
		return "ReadCommand"
	case RequestPing:
		return "RequestPing"
	case Subscribe:
		return "Subscribe"
	case ResponsePing:
		return "ResponsePing"
	case ResponseValue:
		return "ResponseValue"
	case ResponseString:
		return "ResponseString"
	case ResponseOk:
		return "ResponseOk"
	case ResponseFail:
		return "ResponseFail"
	case SendValue:
		return "SendValue"
	case SendString:
		return "SendString"
	case RequestValue:
		return "RequestValue"
	case RequestString:
		return "RequestString"
	default:
		return "Undefined"
	}
}

// Message is the decoded, classified form of one completed frame
// sequence — what a Bus hands upward once a Reader slot completes.
type Message struct {
	Type        MessageType
	Number      uint16
	Serial      uint16
	Command     uint32
	Value       int32
	String      string
	ResponseReq bool
}

// classify implements TotemBUS::encodeTotemBUS verbatim: the order of
// these checks, including the Byte-field override running last and
// unconditionally, is part of the wire contract, not an implementation
// detail free to reorder.
func classify(number, serial uint16, isRequest, isPing bool, data *Data) Message {
	m := Message{
		Number:      number,
		Serial:      serial,
		ResponseReq: data.Bit(),
		Command:     data.CommandHash(),
	}
	if isPing {
		m.Type = ResponsePing
		m.ResponseReq = isRequest
		if isRequest {
			m.Type = RequestPing
		}
		return m
	}
	switch {
	case isRequest && !data.HasCommandInt() && data.HasValueInt():
		m.Type = ReadCommand
		m.Command = uint32(data.ValueInt())
	case data.HasValueInt():
		m.Value = data.ValueInt()
		if isRequest {
			m.Type = WriteValue
		} else {
			m.Type = ResponseValue
		}
	case data.HasValueStr():
		m.String = data.ValueString()
		if isRequest {
			m.Type = WriteString
		} else {
			m.Type = ResponseString
		}
	case isRequest:
		m.Type = WriteCommand
	}
	if data.HasByte() {
		switch MessageType(data.Byte()) {
		case Subscribe, ResponseOk, ResponseFail, SendValue, SendString, RequestValue, RequestString:
			m.Type = MessageType(data.Byte())
		default:
			m.Type = Undefined
		}
	}
	return m
}
