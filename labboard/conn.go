// Package labboard drives a TotemMaker Lab Board accessory over its
// line-oriented UART protocol: "LB:<command>[:<arg>]\n" for writes, and
// "LB:<command>:?\n" followed by a "<command>:<value>\n" reply for
// reads, exactly as LabBoard.cpp's write/read_serial helpers implement
// it on the firmware side.
package labboard

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/GoAethereal/cancel"
	"github.com/totemmaker/totembus-go/internal/tlog"
)

var log = tlog.Get("labboard")

// Conn is a Lab Board UART connection. One in-flight read/write at a
// time, matching the firmware's synchronous Serial.find/readBytesUntil
// wait — the board has no request-tagging, so pipelining two reads
// would make the replies ambiguous.
type Conn struct {
	rw io.ReadWriter
	mu sync.Mutex
	r  *bufio.Reader
}

// New wraps rw (typically an open serial port) as a Lab Board connection.
func New(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, r: bufio.NewReader(rw)}
}

// Write sends "LB:<cmd>:<args...>\n" with args joined by ':', the
// variadic write()/write() overloads in LabBoard.h collapsed into one
// path since Go can format any number of arguments uniformly.
func (c *Conn) Write(cmd string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	b.WriteString("LB:")
	b.WriteString(cmd)
	for _, a := range args {
		b.WriteByte(':')
		fmt.Fprint(&b, a)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(c.rw, b.String())
	return err
}

// Read sends the "<cmd>:?" query and blocks for the board's reply,
// mirroring read_serial: the first line containing cmd as a prefix is
// parsed as "<cmd>:<value>", value read as hex when isHex is set and
// decimal otherwise. ctx governs how long to wait for a reply.
func (c *Conn) Read(ctx cancel.Context, cmd string, isHex bool) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.rw, "LB:"+cmd+":?\n"); err != nil {
		return 0, err
	}

	type result struct {
		value int32
		err   error
	}
	resCh := make(chan result, 1)
	go func() {
		for {
			line, err := c.r.ReadString('\n')
			if err != nil {
				resCh <- result{0, err}
				return
			}
			line = strings.TrimRight(line, "\r\n")
			idx := strings.Index(line, cmd+":")
			if idx < 0 {
				continue
			}
			rest := line[idx+len(cmd)+1:]
			base := 10
			if isHex {
				base = 16
			}
			v, err := strconv.ParseInt(rest, base, 64)
			if err != nil {
				log.Debugf("labboard: malformed reply %q: %v", line, err)
				continue
			}
			resCh <- result{int32(v), nil}
			return
		}
	}()

	select {
	case res := <-resCh:
		return res.value, res.err
	case <-ctx.Done():
		return 0, fmt.Errorf("labboard: %s: %w", cmd, ErrTimeout)
	}
}

// ErrTimeout is returned by Read when ctx expires before a reply arrives.
var ErrTimeout = fmt.Errorf("timed out waiting for reply")
