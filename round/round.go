// Package round implements the shuffle-round state machine and blame
// protocol: the accountable group anonymity core described by spec §1-§9.
// It depends only on the interfaces in crypto, onion, group, and
// transport — the underlying asymmetric primitives, onion helper, group
// registry, and network are all borrowed collaborators (spec §2, §6).
package round

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/shuffleround/crypto"
	"go.dedis.ch/shuffleround/group"
	"go.dedis.ch/shuffleround/onion"
	"go.dedis.ch/shuffleround/transport"
)

// State is a phase of the shuffle round state machine (spec §4.1).
type State int

// States, in normal-progression order, plus the two orthogonal blame
// states.
const (
	StateOffline State = iota
	StateKeySharing
	StateDataSubmission
	StateWaitingForShuffle
	StateShuffling
	StateShuffleDone
	StateVerification
	StatePrivateKeySharing
	StateDecryption
	StateFinished
	StateBlameInit
	StateBlameShare
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "Offline"
	case StateKeySharing:
		return "KeySharing"
	case StateDataSubmission:
		return "DataSubmission"
	case StateWaitingForShuffle:
		return "WaitingForShuffle"
	case StateShuffling:
		return "Shuffling"
	case StateShuffleDone:
		return "ShuffleDone"
	case StateVerification:
		return "Verification"
	case StatePrivateKeySharing:
		return "PrivateKeySharing"
	case StateDecryption:
		return "Decryption"
	case StateFinished:
		return "Finished"
	case StateBlameInit:
		return "BlameInit"
	case StateBlameShare:
		return "BlameShare"
	default:
		return "Unknown"
	}
}

// Config carries the round's fixed sizing (spec §3, §6). There is no
// runtime-recognized configuration beyond this at the round layer.
type Config struct {
	// BlockSize is the maximum plaintext length a participant may
	// contribute. Payloads are padded to BlockSize+4 bytes.
	BlockSize int
}

func (c Config) paddedSize() int { return c.BlockSize + 4 }

// DefaultBlock returns the canonical zero-filled "no data" contribution
// for this configuration.
func (c Config) DefaultBlock() []byte {
	return make([]byte, c.paddedSize())
}

// Round owns one participant's state for a single shuffle round and
// drives its phase transitions (spec §2 item 6, §4.1).
type Round struct {
	cfg    Config
	id     ID
	group  group.View
	trans  transport.Transport
	onion  onion.Onion
	keys   crypto.KeyFactory
	hashes crypto.HashFactory
	signer crypto.PrivateKey

	local     group.Identity
	localIdx  int
	n         int
	state     State
	blameFrom State

	// Per-round secrets (spec §3).
	innerKey crypto.PrivateKey
	outerKey crypto.PrivateKey

	// Collected state, indexed as spec §3 describes: the public arrays are
	// slotted by kidx(sender), the private array by raw sender index.
	publicInnerKeys  []FillOnce[crypto.PublicKey]
	publicOuterKeys  []FillOnce[crypto.PublicKey]
	privateInnerKeys []FillOnce[crypto.PrivateKey]

	keysReceived        int
	privateKeysReceived int

	myData            []byte
	innerCiphertext   []byte
	outerCiphertext   []byte
	shuffleCiphertext [][]byte
	dataReceived      int

	finalVector [][]byte

	broadcastHash   []byte
	goReceived      []bool
	broadcastHashes [][]byte
	goCount         int
	anyNoGo         bool

	logs               []FillOnce[*Log]
	revealedOuterKeys  [][]byte
	blameHash          [][]byte
	blameSignatures    [][]byte
	validBlames        []bool
	blameVerified      []bool
	blameDataReceived  int
	blameVerifications int

	log        *Log
	replayer   Replayer
	successful bool
	badMembers []int
	finished   bool
}

// Deps bundles a Round's borrowed collaborators.
type Deps struct {
	Group     group.View
	Transport transport.Transport
	Onion     onion.Onion
	Keys      crypto.KeyFactory
	Hashes    crypto.HashFactory
	Signer    crypto.PrivateKey
	Replayer  Replayer
}

// New constructs a round in the Offline state. data is this participant's
// plaintext contribution; per spec §3, oversized input falls back to the
// default all-zero block (scenario 3 of spec §8) with a logged warning
// rather than an error.
func New(cfg Config, id ID, deps Deps, data []byte) (*Round, error) {
	n := deps.Group.Count()
	local := deps.Group.ID(deps.Group.Self())

	r := &Round{
		cfg:    cfg,
		id:     id,
		group:  deps.Group,
		trans:  deps.Transport,
		onion:  deps.Onion,
		keys:   deps.Keys,
		hashes: deps.Hashes,
		signer: deps.Signer,
		replayer: deps.Replayer,

		local:    local,
		localIdx: deps.Group.Self(),
		n:        n,
		state:    StateOffline,

		publicInnerKeys:  make([]FillOnce[crypto.PublicKey], n),
		publicOuterKeys:  make([]FillOnce[crypto.PublicKey], n),
		privateInnerKeys: make([]FillOnce[crypto.PrivateKey], n),

		goReceived:      make([]bool, n),
		broadcastHashes: make([][]byte, n),

		logs:              make([]FillOnce[*Log], n),
		revealedOuterKeys: make([][]byte, n),
		blameHash:         make([][]byte, n),
		blameSignatures:   make([][]byte, n),
		validBlames:       make([]bool, n),
		blameVerified:     make([]bool, n),

		log: NewLog(),
	}

	if r.localIdx == 0 {
		r.shuffleCiphertext = make([][]byte, n)
	}

	def := cfg.DefaultBlock()
	switch {
	case len(data) == 0:
		r.myData = def
	case len(data) > cfg.BlockSize:
		log.Warn("shuffleround: data larger than block size, substituting default block")
		r.myData = def
	default:
		r.myData = prepareData(data, cfg.paddedSize())
	}

	deps.Transport.RegisterInbound(r.Dispatch)
	return r, nil
}

// kidx is the key-index inversion of spec §3: kidx(i) = N-1-i.
func (r *Round) kidx(i int) int {
	return r.n - 1 - i
}

// prepareData length-prefixes data with a 4-byte little-endian length and
// zero-pads to size, mirroring ShuffleRound::PrepareData.
func prepareData(data []byte, size int) []byte {
	out := make([]byte, size)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(data)))
	copy(out[4:], data)
	return out
}

// parseData reverses prepareData. An empty or malformed block yields nil,
// matching ShuffleRound::GetData's "return empty on bad cleartext" rule.
func parseData(block []byte) []byte {
	if len(block) < 4 {
		return nil
	}
	size := binary.LittleEndian.Uint32(block[:4])
	if size == 0 {
		return nil
	}
	if int(size) > len(block)-4 {
		return nil
	}
	return append([]byte(nil), block[4:4+size]...)
}

// Start begins phase 1, broadcasting this participant's ephemeral public
// keys. It may be called exactly once.
func (r *Round) Start() error {
	if r.state != StateOffline {
		return ErrAlreadyStarted
	}

	inner, err := r.keys.Generate()
	if err != nil {
		return errors.Wrap(err, "generating inner keypair")
	}
	outer, err := r.keys.Generate()
	if err != nil {
		return errors.Wrap(err, "generating outer keypair")
	}
	r.innerKey = inner
	r.outerKey = outer
	r.state = StateKeySharing

	body := &publicKeysBody{
		InnerPublicKey: inner.Public().Bytes(),
		OuterPublicKey: outer.Public().Bytes(),
	}
	return r.broadcast(TagPublicKeys, body)
}

// broadcast signs and sends payload to every member, feeding it through
// this participant's own dispatcher first (spec §4.4 local-loopback
// discipline).
func (r *Round) broadcast(tag Tag, body interface{}) error {
	payload, err := r.sign(tag, body)
	if err != nil {
		return err
	}
	r.Dispatch(payload, r.local)
	return r.trans.Broadcast(payload)
}

// send signs and sends payload to a single member, looping back locally
// instead of hitting the transport when the destination is the local
// participant (spec §4.4).
func (r *Round) send(tag Tag, body interface{}, to group.Identity) error {
	payload, err := r.sign(tag, body)
	if err != nil {
		return err
	}
	if to == r.local {
		r.Dispatch(payload, r.local)
		return nil
	}
	return r.trans.Send(payload, to)
}

func (r *Round) sign(tag Tag, body interface{}) ([]byte, error) {
	payload, err := encodeFrame(tag, r.id.RoundID, body)
	if err != nil {
		return nil, err
	}
	sig, err := r.signer.Sign(payload)
	if err != nil {
		return nil, errors.Wrap(err, "signing outbound message")
	}
	return append(payload, sig...), nil
}

// Successful reports whether the round has finished successfully. Only
// meaningful once Finished is true.
func (r *Round) Successful() bool { return r.successful }

// Finished reports whether the round has reached its terminal state.
func (r *Round) Finished() bool { return r.finished }

// BadMembers returns the indices attributed as bad by the blame protocol.
// Empty unless the round aborted into blame.
func (r *Round) BadMembers() []int {
	cp := make([]int, len(r.badMembers))
	copy(cp, r.badMembers)
	return cp
}

// State returns the round's current phase, primarily for tests and
// diagnostics.
func (r *Round) State() State { return r.state }
