package round

import (
	"github.com/pkg/errors"
	"go.dedis.ch/protobuf"
)

// Tag identifies a wire message's payload type (spec §6). Tags are a
// closed set of typed constants: dispatch.go's route switches over Tag
// with one case per constant, and any other value falls through to its
// default case and is rejected with ErrUnknownTag. Go does not check the
// switch for exhaustiveness, so a new tag compiles but is rejected at run
// time until route handles it.
type Tag int32

// The stable small integers spec §6 names.
const (
	TagPublicKeys Tag = iota
	TagData
	TagShuffleData
	TagEncryptedData
	TagGo
	TagNoGo
	TagPrivateKey
	TagBlameData
	TagBlameVerification
)

// frame is the outer envelope every wire message shares:
// (tag, round_id, body). body is itself a protobuf-encoded, tag-specific
// struct; splitting framing from payload keeps every payload type a flat,
// positional struct as spec §6's field table describes, while letting
// dispatch.go read the tag and round_id without knowing the payload shape
// yet.
type frame struct {
	Tag     Tag
	RoundID []byte
	Body    []byte
}

// ID identifies a round: (session id, round id, local participant id) per
// spec §3. Only RoundID travels on the wire; SessionID and Local are
// local bookkeeping.
type ID struct {
	SessionID []byte
	RoundID   []byte
	Local     []byte
}

type publicKeysBody struct {
	InnerPublicKey []byte
	OuterPublicKey []byte
}

type dataBody struct {
	OuterCiphertext []byte
}

type shuffleDataBody struct {
	Vector [][]byte
}

type encryptedDataBody struct {
	Vector [][]byte
}

type goBody struct {
	BroadcastHash []byte
}

type noGoBody struct{}

type privateKeyBody struct {
	InnerPrivateKey []byte
}

type blameDataBody struct {
	OuterPrivateKey []byte
	Log             []byte
	Signature       []byte
}

type blameVerificationBody struct {
	BlameHash       [][]byte
	BlameSignatures [][]byte
}

func encodeFrame(tag Tag, roundID []byte, body interface{}) ([]byte, error) {
	b, err := protobuf.Encode(body)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding body for tag %d", tag)
	}
	return protobuf.Encode(&frame{Tag: tag, RoundID: roundID, Body: b})
}

func decodeFrame(payload []byte) (*frame, error) {
	f := &frame{}
	if err := protobuf.Decode(payload, f); err != nil {
		return nil, errors.Wrap(err, "decoding frame")
	}
	return f, nil
}

func decodeBody(body []byte, target interface{}) error {
	return errors.Wrap(protobuf.Decode(body, target), "decoding message body")
}
