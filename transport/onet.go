package transport

import (
	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/shuffleround/group"
)

// envelope carries a round's already-signed wire message through onet's
// typed dispatch, the same wrapper role StructDataUp/StructDataDown play
// for the legacy prifi protocol messages.
type envelope struct {
	Payload []byte
}

type structEnvelope struct {
	*onet.TreeNode
	envelope
}

func init() {
	network.RegisterMessage(envelope{})
}

// OnetAdapter maps the round's Transport interface onto a running
// onet.TreeNodeInstance, so the exact same round.Round used by
// transport.Local in tests can be driven as a real onet protocol in
// production. Grounded on evoting/protocol/shuffle.go's use of
// TreeNodeInstance.SendTo/Broadcast and messaging/broadcast.go's handler
// registration style.
type OnetAdapter struct {
	node       *onet.TreeNodeInstance
	byIdentity map[group.Identity]*onet.TreeNode
	sink       func(data []byte, source group.Identity)
	inbound    InboundFunc
}

// NewOnetAdapter builds an adapter over node. idOf must derive this
// package's group.Identity from a TreeNode's ServerIdentity, matching
// whatever scheme the caller's group.View uses (typically the
// ServerIdentity's public key bytes).
func NewOnetAdapter(node *onet.TreeNodeInstance, idOf func(*onet.TreeNode) group.Identity) (*OnetAdapter, error) {
	a := &OnetAdapter{node: node, byIdentity: make(map[group.Identity]*onet.TreeNode)}
	for _, tn := range node.Tree().List() {
		a.byIdentity[idOf(tn)] = tn
	}
	if err := node.RegisterHandler(a.handleEnvelope); err != nil {
		return nil, errors.Wrap(err, "registering shuffle-round envelope handler")
	}
	return a, nil
}

// Broadcast implements Transport.
func (a *OnetAdapter) Broadcast(payload []byte) error {
	if errs := a.node.Broadcast(&envelope{Payload: payload}); len(errs) > 0 {
		return errors.Errorf("onet transport: broadcast errors: %v", errs)
	}
	return nil
}

// Send implements Transport.
func (a *OnetAdapter) Send(payload []byte, to group.Identity) error {
	tn, ok := a.byIdentity[to]
	if !ok {
		return errors.Errorf("onet transport: unknown destination %q", to)
	}
	return a.node.SendTo(tn, &envelope{Payload: payload})
}

// Close implements Transport.
func (a *OnetAdapter) Close(reason string) {
	a.node.Done()
}

// PushData implements Transport.
func (a *OnetAdapter) PushData(data []byte, source group.Identity) {
	if a.sink != nil {
		a.sink(data, source)
	}
}

// RegisterInbound implements Transport.
func (a *OnetAdapter) RegisterInbound(fn InboundFunc) {
	a.inbound = fn
}

// OnPush registers the plaintext output sink, mirroring transport.Local's
// test hook.
func (a *OnetAdapter) OnPush(fn func(data []byte, source group.Identity)) {
	a.sink = fn
}

func (a *OnetAdapter) handleEnvelope(msg structEnvelope) error {
	if a.inbound == nil {
		return nil
	}
	sender := a.identityOf(msg.TreeNode)
	a.inbound(msg.Payload, sender)
	return nil
}

func (a *OnetAdapter) identityOf(tn *onet.TreeNode) group.Identity {
	for id, cand := range a.byIdentity {
		if cand.ID.Equal(tn.ID) {
			return id
		}
	}
	return group.ZeroIdentity
}
