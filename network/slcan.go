package network

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/totemmaker/totembus-go"
	"github.com/totemmaker/totembus-go/internal/tlog"
)

var slog = tlog.Get("network.slcan")

// SLCANTransport drives a Network over a Lawicel SLCAN-style ASCII
// serial link, the common way a USB-CAN adapter without its own driver
// exposes raw CAN frames. It plays the Transport role framer.go's tcp
// type plays for Modbus: encode/decode of one line <-> one frame.
//
// Extended data frames are "T" + 8 hex id digits + 1 hex length digit +
// 2*length hex data digits, terminated by CR; extended RTR frames are
// "R" + 8 hex id digits + 1 hex length digit, also CR-terminated. Lines
// that don't start with T or R (adapter banners, "z" ack bytes, etc.)
// are ignored rather than treated as a protocol error.
type SLCANTransport struct {
	rw      io.ReadWriteCloser
	onFrame func(id uint32, data []byte)
	done    chan struct{}
}

// NewSLCANTransport starts reading rw in a background goroutine,
// calling onFrame for every well-formed line received. Close stops the
// reader and closes rw.
func NewSLCANTransport(rw io.ReadWriteCloser, onFrame func(id uint32, data []byte)) *SLCANTransport {
	t := &SLCANTransport{rw: rw, onFrame: onFrame, done: make(chan struct{})}
	go t.readLoop()
	return t
}

func (t *SLCANTransport) readLoop() {
	scanner := bufio.NewScanner(t.rw)
	scanner.Split(scanSLCANLines)
	for scanner.Scan() {
		select {
		case <-t.done:
			return
		default:
		}
		line := scanner.Text()
		id, data, err := decodeSLCANLine(line)
		if err != nil {
			slog.Debugf("ignoring malformed slcan line %q: %v", line, err)
			continue
		}
		t.onFrame(id, data)
	}
}

// scanSLCANLines splits on CR, the Lawicel line terminator, instead of
// bufio.ScanLines' LF convention.
func scanSLCANLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func decodeSLCANLine(line string) (id uint32, data []byte, err error) {
	if len(line) < 9 || (line[0] != 'T' && line[0] != 'R') {
		return 0, nil, fmt.Errorf("not an extended CAN line")
	}
	idVal, err := strconv.ParseUint(line[1:9], 16, 32)
	if err != nil {
		return 0, nil, err
	}
	if len(line) < 10 {
		return 0, nil, fmt.Errorf("missing length digit")
	}
	length, err := strconv.ParseUint(line[9:10], 16, 8)
	if err != nil {
		return 0, nil, err
	}
	// SendFrame masks the EXT and RTR flag bits off the identifier; the
	// line type restores them ('T'/'R' are extended frames, 'R' is RTR).
	id = uint32(idVal) | 0x80000000
	if line[0] == 'R' {
		return id | 0x40000000, nil, nil
	}
	want := 10 + int(length)*2
	if len(line) < want {
		return 0, nil, fmt.Errorf("short data field")
	}
	data, err = hex.DecodeString(line[10:want])
	if err != nil {
		return 0, nil, err
	}
	return id, data, nil
}

// SendFrame writes f as one SLCAN line.
func (t *SLCANTransport) SendFrame(f totembus.Frame) error {
	if f.Len == 0 {
		line := fmt.Sprintf("R%08X0\r", f.ID&0x1FFFFFFF)
		_, err := io.WriteString(t.rw, line)
		return err
	}
	line := fmt.Sprintf("T%08X%X%s\r", f.ID&0x1FFFFFFF, f.Len, hex.EncodeToString(f.Data[:f.Len]))
	_, err := io.WriteString(t.rw, line)
	return err
}

// Close stops the reader goroutine and closes the underlying stream.
func (t *SLCANTransport) Close() error {
	close(t.done)
	return t.rw.Close()
}
