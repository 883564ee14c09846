package round

import "go.dedis.ch/shuffleround/group"

// Evidence is everything a round hands to a forensic Replayer when its own
// blame protocol's cross-verification step (spec §4.2 phase B) closes
// without directly convicting anyone: every participant's accepted-message
// log, the outer private keys revealed during blame, and enough context
// to re-derive the round's message tags.
type Evidence struct {
	RoundID          []byte
	Group            group.View
	Logs             []*Log
	OuterPrivateKeys [][]byte
	SignatureSize    int
}

// Replayer independently re-derives which participants misbehaved by
// replaying a round's logged messages. It is the last resort of spec
// §4.2's blame protocol: called only when live cross-verification during
// the round found no participant it could directly convict.
type Replayer interface {
	Replay(evidence Evidence) []bool
}

// DecodeFrameTag strips a trailing signature of sigSize bytes and decodes
// only the frame header, for callers such as a Replayer that need a
// logged message's tag without running the full Dispatch verification
// pipeline again.
func DecodeFrameTag(payload []byte, sigSize int) (Tag, error) {
	if len(payload) < sigSize {
		return 0, ErrShortMessage
	}
	f, err := decodeFrame(payload[:len(payload)-sigSize])
	if err != nil {
		return 0, err
	}
	return f.Tag, nil
}
