// Package group provides the stable, ordered participant list a shuffle
// round runs against. It borrows the shape of onet's Roster/ServerIdentity
// lookups (index<->identity mapping, a sentinel "no such node") without
// depending on onet's network transport. In Static, ID is a direct slice
// lookup, while Index, Next and Previous scan the ordered list.
package group

import "go.dedis.ch/shuffleround/crypto"

// Identity names a participant. It is opaque to this package; callers
// typically derive it from a long-term public key's serialization.
type Identity string

// ZeroIdentity is the sentinel returned by Next/Previous when there is no
// such neighbour, e.g. the tail's successor or the head's predecessor.
const ZeroIdentity Identity = ""

// View is the read-only, borrowed membership registry a round consults.
// Membership is fixed for the lifetime of a round (see spec Non-goals: no
// churn handling within a round).
type View interface {
	// Count returns N, the number of participants.
	Count() int
	// Index returns the participant's position, or false if unknown.
	Index(id Identity) (int, bool)
	// ID returns the identity at a given index. Panics if out of range.
	ID(index int) Identity
	// Key returns the long-term verification key for id.
	Key(id Identity) crypto.PublicKey
	// Next returns the successor of id, or ZeroIdentity if id is the tail.
	Next(id Identity) Identity
	// Previous returns the predecessor of id, or ZeroIdentity if id is the head.
	Previous(id Identity) Identity
	// Self returns the local participant's own index.
	Self() int
}

// Static is a fixed, in-memory View built once at round start. It is the
// group the round-transport package's Local transport and cmd/shuffledemo
// use to run a whole round in a single process.
type Static struct {
	ids  []Identity
	keys map[Identity]crypto.PublicKey
	self int
}

// NewStatic builds a Static view from an ordered participant list. ids[0]
// is the head, ids[len(ids)-1] is the tail. self is the local participant's
// index into ids.
func NewStatic(ids []Identity, keys map[Identity]crypto.PublicKey, self int) *Static {
	cp := make([]Identity, len(ids))
	copy(cp, ids)
	return &Static{ids: cp, keys: keys, self: self}
}

// Count implements View.
func (s *Static) Count() int { return len(s.ids) }

// Index implements View.
func (s *Static) Index(id Identity) (int, bool) {
	for i, cur := range s.ids {
		if cur == id {
			return i, true
		}
	}
	return 0, false
}

// ID implements View.
func (s *Static) ID(index int) Identity { return s.ids[index] }

// Key implements View.
func (s *Static) Key(id Identity) crypto.PublicKey { return s.keys[id] }

// Next implements View.
func (s *Static) Next(id Identity) Identity {
	idx, ok := s.Index(id)
	if !ok || idx == len(s.ids)-1 {
		return ZeroIdentity
	}
	return s.ids[idx+1]
}

// Previous implements View.
func (s *Static) Previous(id Identity) Identity {
	idx, ok := s.Index(id)
	if !ok || idx == 0 {
		return ZeroIdentity
	}
	return s.ids[idx-1]
}

// Self implements View.
func (s *Static) Self() int { return s.self }
