// Package module implements the controller side of a TotemBUS
// conversation: one Ctrl per addressed board, matching commands to the
// responses they provoke.
//
// TotemLib's ModuleCtrl does this with a single-slot volatile latch
// (response.command/succ/waiting) and a 1ms-poll busy loop in
// waitResponse. client.go's Client.Request shows the Go-idiomatic
// replacement for that shape: a cancellable context plus a one-shot
// channel handed to the matching callback. Ctrl follows client.go's
// pattern rather than ModuleCtrl's polling loop, per the redesign
// direction to replace ad hoc busy-wait latches with channel rendezvous.
package module

import (
	"sync"

	"github.com/GoAethereal/cancel"
	"github.com/totemmaker/totembus-go"
	"github.com/totemmaker/totembus-go/internal/tlog"
	"github.com/totemmaker/totembus-go/network"
)

var log = tlog.Get("module")

// MessageFunc receives every ResponseValue/ResponseString message
// addressed to a Ctrl, independent of whether a Write/Read call is
// currently waiting on it — the equivalent of ModuleCtrl's virtual
// onModuleMessage hook.
type MessageFunc func(command uint32, value int32, str string)

// Ctrl addresses one board (Number, and Serial if known) and turns its
// ResponseValue/ResponseString/ResponseOk/ResponseFail traffic into
// completions for outstanding Write/Read/Subscribe calls.
type Ctrl struct {
	Number uint16
	// Serial filters by serial number when nonzero; zero means "any
	// serial", matching isFromModule's wildcard-on-zero-serial rule.
	Serial uint16

	net *network.Network
	onMessage MessageFunc

	mu      sync.Mutex
	waiting bool
	command uint32
	succ    bool
	done    chan struct{}

	lastCommand uint32
	lastValue   int32
	lastString  string
}

// NewCtrl creates a Ctrl for number/serial. serial may be 0 to match
// any serial for that module number.
func NewCtrl(number, serial uint16) *Ctrl {
	return &Ctrl{Number: number, Serial: serial}
}

// OnMessage installs the callback invoked for every ResponseValue and
// ResponseString message, regardless of any in-flight wait.
func (c *Ctrl) OnMessage(fn MessageFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// Attach registers c as a Receiver on n so it starts observing traffic
// addressed to it.
func (c *Ctrl) Attach(n *network.Network) {
	c.net = n
	n.Attach(c)
}

// Detach stops c from receiving further messages.
func (c *Ctrl) Detach() {
	if c.net != nil {
		c.net.Detach(c)
		c.net = nil
	}
}

// isFromModule reports whether msg originated from the board c
// addresses, mirroring ModuleCtrl::isFromModule: number 0 on c matches
// any module, a nonzero Serial on c must match exactly, otherwise only
// Number must match.
func (c *Ctrl) isFromModule(msg totembus.Message) bool {
	if c.Number == 0 {
		return true
	}
	if c.Serial != 0 && c.Serial != msg.Serial {
		return false
	}
	return c.Number == msg.Number
}

// Receive implements network.Receiver. ResponseValue and
// ResponseString both invoke the message callback and then complete a
// pending wait successfully; ResponseOk completes a pending wait
// successfully without invoking the callback; ResponseFail completes a
// pending wait as a FAILURE. Any other message type (a request seen on
// the bus, a ping) leaves the pending wait untouched.
func (c *Ctrl) Receive(msg totembus.Message) {
	if !c.isFromModule(msg) {
		return
	}
	switch msg.Type {
	case totembus.ResponseValue:
		c.callMessage(msg.Command, msg.Value, "")
		c.giveResponse(msg.Command, true)
	case totembus.ResponseString:
		c.callMessage(msg.Command, 0, msg.String)
		c.giveResponse(msg.Command, true)
	case totembus.ResponseOk:
		c.giveResponse(msg.Command, true)
	case totembus.ResponseFail:
		c.giveResponse(msg.Command, false)
	}
}

func (c *Ctrl) callMessage(command uint32, value int32, str string) {
	c.mu.Lock()
	fn := c.onMessage
	c.lastCommand = command
	c.lastValue = value
	c.lastString = str
	c.mu.Unlock()
	if fn != nil {
		fn(command, value, str)
	}
}

// prepareWait arms the single-slot response latch for command, the way
// ModuleCtrl::prepareWait does, returning the channel that closes when
// a matching response arrives.
func (c *Ctrl) prepareWait(command uint32) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiting = true
	c.command = command
	c.succ = false
	c.done = make(chan struct{})
	return c.done
}

// giveResponse completes the latch if it is armed for command, matching
// ModuleCtrl::giveResponse's "only update if response.command==command"
// guard (a response for a command nobody is waiting on is silently
// dropped).
func (c *Ctrl) giveResponse(command uint32, succ bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.waiting || c.command != command {
		log.Debugf("dropping response for command %d: nothing waiting on it", command)
		return
	}
	c.waiting = false
	c.succ = succ
	close(c.done)
}

// waitResponse blocks until the armed latch completes or ctx is done,
// replacing ModuleCtrl::waitResponse's delay(1) poll loop with the
// same cancel.Context-plus-channel rendezvous Client.Request uses to
// wait on con.rx.  It reports whether a response arrived at all;
// whether that response was a success is read separately from c.succ,
// since a response can legitimately be ResponseFail.
func (c *Ctrl) waitResponse(ctx cancel.Context, done chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		c.mu.Lock()
		c.waiting = false
		c.mu.Unlock()
		return false
	}
}
