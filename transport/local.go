package transport

import (
	"sync"

	"github.com/pkg/errors"
	"go.dedis.ch/shuffleround/group"
)

// Network wires a set of Local transports together in one process, the
// role onet.LocalTest plays for onet protocols in evoting/protocol's
// tests.
type Network struct {
	mu    sync.Mutex
	nodes map[group.Identity]*Local
}

// NewNetwork returns an empty in-process network.
func NewNetwork() *Network {
	return &Network{nodes: make(map[group.Identity]*Local)}
}

// Join creates and registers a Local transport for id.
func (n *Network) Join(id group.Identity) *Local {
	l := &Local{id: id, net: n}
	n.mu.Lock()
	n.nodes[id] = l
	n.mu.Unlock()
	return l
}

func (n *Network) peers() map[group.Identity]*Local {
	n.mu.Lock()
	defer n.mu.Unlock()
	cp := make(map[group.Identity]*Local, len(n.nodes))
	for k, v := range n.nodes {
		cp[k] = v
	}
	return cp
}

func (n *Network) lookup(id group.Identity) *Local {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nodes[id]
}

// Local is an in-process Transport implementation. Delivery is
// synchronous and single-threaded, matching spec §5's cooperative
// dispatch model: Broadcast/Send return only after every peer's inbound
// callback has run.
type Local struct {
	id      group.Identity
	net     *Network
	inbound InboundFunc
	sink    func(data []byte, source group.Identity)
	closed  bool
	reason  string
}

// Broadcast implements Transport. It delivers to every other joined
// participant; the caller (round) is responsible for local loopback per
// spec §4.4.
func (l *Local) Broadcast(payload []byte) error {
	for id, peer := range l.net.peers() {
		if id == l.id {
			continue
		}
		peer.deliver(payload, l.id)
	}
	return nil
}

// Send implements Transport.
func (l *Local) Send(payload []byte, to group.Identity) error {
	if to == l.id {
		return nil
	}
	peer := l.net.lookup(to)
	if peer == nil {
		return errors.Errorf("transport: unknown destination %q", to)
	}
	peer.deliver(payload, l.id)
	return nil
}

// Close implements Transport.
func (l *Local) Close(reason string) {
	l.closed = true
	l.reason = reason
}

// PushData implements Transport.
func (l *Local) PushData(data []byte, source group.Identity) {
	if l.sink != nil {
		l.sink(data, source)
	}
}

// RegisterInbound implements Transport.
func (l *Local) RegisterInbound(fn InboundFunc) {
	l.inbound = fn
}

// OnPush registers the callback PushData delivers plaintexts to. It exists
// outside the Transport interface because only test harnesses and
// cmd/shuffledemo need to observe a round's output; the round itself only
// ever calls PushData.
func (l *Local) OnPush(fn func(data []byte, source group.Identity)) {
	l.sink = fn
}

// Closed reports whether Close has been called, and with what reason.
func (l *Local) Closed() (bool, string) {
	return l.closed, l.reason
}

func (l *Local) deliver(payload []byte, from group.Identity) {
	if l.inbound != nil {
		l.inbound(payload, from)
	}
}
