package network

import (
	"context"
	"net"
	"sync"

	"github.com/totemmaker/totembus-go/internal/tlog"
)

var glog = tlog.Get("network.gateway")

// Gateway bridges a Network onto a TCP listener speaking the SLCAN
// line protocol, the way server.go's Server bridges a modbus Handler
// onto net.Listen: every accepted connection becomes another
// SLCANTransport whose frames are fed into the same Network. Frames the
// Network emits are not relayed automatically; a caller pushes them to
// the connected peers with Broadcast. This lets a remote debug tool (or
// another process) inject TotemBUS traffic without its own CAN hardware.
type Gateway struct {
	net *Network

	mu    sync.Mutex
	peers map[*SLCANTransport]struct{}
}

// NewGateway returns a Gateway relaying frames between n and whatever
// TCP clients Serve accepts.
func NewGateway(n *Network) *Gateway {
	return &Gateway{net: n, peers: make(map[*SLCANTransport]struct{})}
}

// Serve listens on addr and bridges every accepted connection until ctx
// is cancelled, mirroring Server.Serve's accept-loop-plus-goroutine
// shape.
func (g *Gateway) Serve(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			default:
				glog.Warningf("accept failed: %v", err)
				continue
			}
		}
		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			g.handle(c)
		}(conn)
	}
}

func (g *Gateway) handle(conn net.Conn) {
	var peer *SLCANTransport
	peer = NewSLCANTransport(conn, func(id uint32, data []byte) {
		g.net.HandleFrame(id, data)
	})
	g.mu.Lock()
	g.peers[peer] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.peers, peer)
		g.mu.Unlock()
		peer.Close()
	}()
	<-peer.done
}

// Broadcast calls f once for every connected TCP peer. Network itself
// never calls it; it is for a caller that wants to push traffic to the
// peers. Peers for which f fails are logged and otherwise ignored — a
// disconnected debug client must never block bus traffic.
func (g *Gateway) Broadcast(f func(*SLCANTransport) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for peer := range g.peers {
		if err := f(peer); err != nil {
			glog.Debugf("gateway peer write failed: %v", err)
		}
	}
}
