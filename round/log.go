package round

import (
	"github.com/pkg/errors"
	"go.dedis.ch/protobuf"
	"go.dedis.ch/shuffleround/group"
)

// Entry is one accepted wire message, in arrival order.
type Entry struct {
	Sender  group.Identity
	Payload []byte
}

// Log is the append-only record of every wire message this participant's
// round accepted into its state (spec §2 item 5, §4.3). dispatch.go
// appends before running a handler and pops on rejection, so the log is
// always in one-to-one correspondence with accepted messages (spec §3
// invariants).
type Log struct {
	entries []Entry
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append records a message as accepted.
func (l *Log) Append(sender group.Identity, payload []byte) {
	l.entries = append(l.entries, Entry{Sender: sender, Payload: append([]byte(nil), payload...)})
}

// PopLast removes the most recently appended entry. It is a no-op on an
// empty log, which should never happen given dispatch.go's discipline of
// only popping what it just appended.
func (l *Log) PopLast() {
	if len(l.entries) == 0 {
		return
	}
	l.entries = l.entries[:len(l.entries)-1]
}

// Len reports the number of accepted messages.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns the accepted messages in arrival order. The slice is
// owned by the caller; mutating it does not affect the log.
func (l *Log) Entries() []Entry {
	cp := make([]Entry, len(l.entries))
	copy(cp, l.entries)
	return cp
}

// logWire is the protobuf-serializable form of a Log, used for both blame
// evidence (spec §4.2 phase A) and the forensic replayer's input.
type logWire struct {
	Senders  []string
	Payloads [][]byte
}

// Serialize encodes the log for transmission as blame evidence.
func (l *Log) Serialize() ([]byte, error) {
	w := logWire{
		Senders:  make([]string, len(l.entries)),
		Payloads: make([][]byte, len(l.entries)),
	}
	for i, e := range l.entries {
		w.Senders[i] = string(e.Sender)
		w.Payloads[i] = e.Payload
	}
	b, err := protobuf.Encode(&w)
	return b, errors.Wrap(err, "encoding log")
}

// DeserializeLog reverses Serialize, used by peers verifying blame
// evidence and by the forensic replayer.
func DeserializeLog(data []byte) (*Log, error) {
	var w logWire
	if err := protobuf.Decode(data, &w); err != nil {
		return nil, errors.Wrap(err, "decoding log")
	}
	if len(w.Senders) != len(w.Payloads) {
		return nil, errors.New("corrupt log: sender/payload count mismatch")
	}
	l := &Log{entries: make([]Entry, len(w.Senders))}
	for i := range w.Senders {
		l.entries[i] = Entry{Sender: group.Identity(w.Senders[i]), Payload: w.Payloads[i]}
	}
	return l, nil
}
