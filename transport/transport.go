// Package transport declares the round's borrowed messaging surface (spec
// §2, §6) and provides two implementations: Local, an in-process fan-out
// for tests and cmd/shuffledemo, and OnetAdapter, which maps the same
// interface onto a production go.dedis.ch/onet/v3 protocol instance the
// way evoting/protocol/shuffle.go and messaging/broadcast.go do.
package transport

import "go.dedis.ch/shuffleround/group"

// InboundFunc is the callback a Transport delivers every inbound wire
// message to.
type InboundFunc func(payload []byte, sender group.Identity)

// Transport is the round's messaging dependency. The round never dials a
// connection or resolves an address itself; it only ever calls these
// methods and registers one InboundFunc.
type Transport interface {
	// Broadcast sends payload to every other member. The caller is
	// responsible for local loopback and for signing (spec §4.4).
	Broadcast(payload []byte) error
	// Send sends payload to a single member. A destination equal to the
	// local participant is a caller error to loop back, not a network send.
	Send(payload []byte, to group.Identity) error
	// Close finalizes the round, releasing any transport resources.
	Close(reason string)
	// PushData delivers an unwrapped plaintext to the round's output sink.
	PushData(data []byte, source group.Identity)
	// RegisterInbound installs the callback invoked for every inbound
	// wire message this participant receives, including its own
	// loopback traffic.
	RegisterInbound(fn InboundFunc)
}
