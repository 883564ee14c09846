// Package blame supplies a concrete round.Replayer: the forensic
// last-resort step of the shuffle round's blame protocol (spec §4.2 phase
// C), invoked only when live cross-verification during the round
// convicted no one.
package blame

import (
	"bytes"

	"go.dedis.ch/shuffleround/round"
)

// witness identifies one (sender, tag) pair across every collected log.
type witness struct {
	sender string
	tag    int32
}

// Reference is a straightforward Replayer: it cross-checks every
// collected log for two different payloads attributed to the same sender
// and tag anywhere in the round. That is exactly the equivocation
// signature the live protocol's cross-verification step can miss when a
// dishonest sender shows each half of a lie to disjoint, non-overlapping
// subsets of the group, so no two witnesses of the same lie ever end up
// comparing notes during the round itself.
type Reference struct{}

// Replay implements round.Replayer.
func (Reference) Replay(evidence round.Evidence) []bool {
	n := evidence.Group.Count()
	guilty := make([]bool, n)
	seen := make(map[witness][]byte)

	for _, l := range evidence.Logs {
		if l == nil {
			continue
		}
		for _, entry := range l.Entries() {
			tag, err := round.DecodeFrameTag(entry.Payload, evidence.SignatureSize)
			if err != nil {
				continue
			}
			w := witness{sender: string(entry.Sender), tag: int32(tag)}
			prior, ok := seen[w]
			if !ok {
				seen[w] = entry.Payload
				continue
			}
			if bytes.Equal(prior, entry.Payload) {
				continue
			}
			if idx, ok := evidence.Group.Index(entry.Sender); ok {
				guilty[idx] = true
			}
		}
	}
	return guilty
}
