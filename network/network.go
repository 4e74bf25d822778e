package network

import (
	"sync"
	"time"

	"github.com/totemmaker/totembus-go"
	"github.com/totemmaker/totembus-go/internal/tlog"
)

var log = tlog.Get("network")

// Transport is the physical or tunnelled link a Network drives: a CAN
// controller, an SLCAN-over-serial adapter (see NewSLCANTransport), or
// the BLE GATT tunnel in the ble package. Implementations must call the
// Network's HandleFrame for every frame they receive.
type Transport interface {
	totembus.FrameSender
	Close() error
}

// Receiver is anything that wants classified Messages as they arrive —
// typically one module.Ctrl per addressed module, but a diagnostic
// logger or the Responder bridge in responder.go can subscribe too.
// This replaces the original's global default/detached ModuleList
// split (spec §9 REDESIGN FLAGS) with plain attach/detach against one
// explicit Network instance.
type Receiver interface {
	Receive(totembus.Message)
}

// Network is the request/response coordination layer over a Bus: it
// owns the outbound send queue and its 250ms-tick sender worker, a
// ping-based connectivity monitor, and the registry of Receivers a
// completed Message is broadcast to (grounded on
// TotemLib::TotemNetwork and ModuleList).
type Network struct {
	bus       *totembus.Bus
	transport Transport
	queue     chan totembus.Frame
	done      chan struct{}
	wg        sync.WaitGroup

	mu        sync.Mutex
	receivers []Receiver
	responder Responder

	pingMu     sync.Mutex
	pingArmed  bool
	pingNumber uint16
	// pingSerial is the serial filter; -1 means "any serial", matching
	// TotemNetwork::isModuleConnected's serialFilter default.
	pingSerial int32
	pingHit    chan struct{}
}

// New starts a Network driving transport. The sender worker begins
// immediately; call Close to stop it and release the transport.
func New(transport Transport, cfg Config) *Network {
	cfg.Verify()
	n := &Network{
		transport: transport,
		queue:     make(chan totembus.Frame, cfg.SendQueueCapacity),
		done:      make(chan struct{}),
	}
	n.bus = totembus.NewBus(frameSenderFunc(n.enqueue), cfg.Bus)
	n.wg.Add(1)
	go n.sendLoop(cfg.SendTick)
	return n
}

// frameSenderFunc adapts a plain function to totembus.FrameSender, the
// way the original's onTotemBUSCANSend callback adapts a C function
// pointer to push onto the ring buffer.
type frameSenderFunc func(totembus.Frame) error

func (f frameSenderFunc) SendFrame(fr totembus.Frame) error { return f(fr) }

func (n *Network) enqueue(f totembus.Frame) error {
	select {
	case n.queue <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

func (n *Network) sendLoop(tick time.Duration) {
	defer n.wg.Done()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-n.done:
			return
		case f := <-n.queue:
			if err := n.transport.SendFrame(f); err != nil {
				log.Warningf("frame send failed: %v", err)
			}
		case <-ticker.C:
			// wake to notice n.done even if the queue is idle, matching
			// the original's bounded xRingbufferReceiveUpTo wait.
		}
	}
}

// Close stops the sender worker and closes the transport. In-flight
// waiters in the module package observe this through their own
// cancellable contexts, not through Network directly.
func (n *Network) Close() error {
	close(n.done)
	n.wg.Wait()
	return n.transport.Close()
}

// Send builds and writes f's frames addressed to number/serial.
func (n *Network) Send(number, serial uint16, f totembus.BusFrame) error {
	return n.bus.Send(number, serial, f)
}

// Attach registers r to receive every classified Message this Network
// decodes (after ping-monitor interception, as in the original's
// onNetworkMessageReceive). Safe for concurrent use.
func (n *Network) Attach(r Receiver) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receivers = append(n.receivers, r)
}

// Detach unregisters a previously attached Receiver.
func (n *Network) Detach(r Receiver) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, x := range n.receivers {
		if x == r {
			n.receivers = append(n.receivers[:i], n.receivers[i+1:]...)
			return
		}
	}
}

// SetResponder installs the board-emulation responder (see
// responder.go). A nil responder disables auto-reply.
func (n *Network) SetResponder(r Responder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responder = r
}

// HandleFrame feeds one inbound CAN frame (from whatever Transport
// received it) into the protocol engine, intercepts ResponsePing for
// the connectivity monitor, dispatches any auto-reply the Responder
// produces, and finally broadcasts the classified Message to every
// attached Receiver — mirroring processCANPacket -> TotemBUS::processCAN
// -> onNetworkMessageReceive -> moduleListCallMessageReceive.
func (n *Network) HandleFrame(id uint32, data []byte) {
	msg, ok, result := n.bus.ProcessIncoming(id, data)
	if !ok {
		if result.Failed() {
			log.Debugf("frame dropped: %v", result)
		}
		return
	}
	if msg.Type == totembus.ResponsePing {
		if n.observePing(msg) {
			return
		}
	}
	n.mu.Lock()
	responder := n.responder
	receivers := append([]Receiver(nil), n.receivers...)
	n.mu.Unlock()
	if responder != nil {
		if reply, ok := responder.Handle(msg); ok {
			if err := n.Send(msg.Number, msg.Serial, reply); err != nil {
				log.Warningf("auto-reply failed: %v", err)
			}
		}
	}
	for _, r := range receivers {
		r.Receive(msg)
	}
}

// observePing reports whether msg was consumed by an armed ping
// monitor (in which case it must not also reach application Receivers,
// matching the original's "block output to application" comment).
func (n *Network) observePing(msg totembus.Message) bool {
	n.pingMu.Lock()
	armed := n.pingArmed
	if armed && n.pingNumber == msg.Number && (n.pingSerial == -1 || n.pingSerial == int32(msg.Serial)) {
		select {
		case n.pingHit <- struct{}{}:
		default:
		}
	}
	n.pingMu.Unlock()
	return armed
}

// IsConnected pings number/serial up to retries times, waiting timeout
// for a pong after each ping, and reports whether one arrived. The
// caller passes both values; Config.PingRetries and Config.PingTimeout
// are not read here. A zero serial accepts a pong from any serial.
func (n *Network) IsConnected(number, serial uint16, retries int, timeout time.Duration) bool {
	serialFilter := int32(-1)
	if serial != 0 {
		serialFilter = int32(serial)
	}
	n.pingMu.Lock()
	n.pingArmed = true
	n.pingNumber = number
	n.pingSerial = serialFilter
	n.pingHit = make(chan struct{}, 1)
	hit := n.pingHit
	n.pingMu.Unlock()
	defer func() {
		n.pingMu.Lock()
		n.pingArmed = false
		n.pingMu.Unlock()
	}()
	for i := 0; i < retries; i++ {
		if err := n.Send(number, serial, totembus.PingRequestFrame()); err != nil {
			log.Warningf("ping send failed: %v", err)
			continue
		}
		select {
		case <-hit:
			return true
		case <-time.After(timeout):
		}
	}
	return false
}
