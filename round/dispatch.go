package round

import (
	"bytes"

	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/shuffleround/group"
)

// Dispatch is the single entry point for every inbound wire message,
// including this participant's own loopback traffic (spec §4.3, §4.4):
// broadcast/send call it directly on the local identity before ever
// touching the transport. It is registered with the transport's
// RegisterInbound in New.
func (r *Round) Dispatch(payload []byte, sender group.Identity) {
	if err := r.dispatch(payload, sender); err != nil {
		log.Lvlf3("shuffleround: rejecting message tag from %s: %v", sender, err)
	}
}

// dispatch verifies the trailing signature, decodes the frame, appends
// the message to the log before running its handler, and pops the entry
// again if the handler rejects it — the log always ends up holding
// exactly the messages this participant accepted (spec §3's log
// invariant). A message that triggers blame is still accepted: its
// handler returns nil and the entry stays in the log as evidence.
func (r *Round) dispatch(payload []byte, sender group.Identity) error {
	sigSize := r.keys.SignatureSize()
	if len(payload) < sigSize {
		return ErrShortMessage
	}
	body, sig := payload[:len(payload)-sigSize], payload[len(payload)-sigSize:]

	senderKey := r.group.Key(sender)
	if senderKey == nil {
		return ErrUnknownSender
	}
	if err := senderKey.Verify(body, sig); err != nil {
		return ErrBadSignature
	}

	f, err := decodeFrame(body)
	if err != nil {
		return err
	}
	if !bytes.Equal(f.RoundID, r.id.RoundID) {
		return ErrWrongRound
	}

	r.log.Append(sender, payload)
	if err := r.route(f.Tag, sender, f.Body); err != nil {
		r.log.PopLast()
		return err
	}
	return nil
}

func (r *Round) route(tag Tag, sender group.Identity, body []byte) error {
	switch tag {
	case TagPublicKeys:
		return r.handlePublicKeys(sender, body)
	case TagData:
		return r.handleData(sender, body)
	case TagShuffleData:
		return r.handleShuffleData(sender, body)
	case TagEncryptedData:
		return r.handleEncryptedData(sender, body)
	case TagGo:
		return r.handleGo(sender, body)
	case TagNoGo:
		return r.handleNoGo(sender, body)
	case TagPrivateKey:
		return r.handlePrivateKey(sender, body)
	case TagBlameData:
		return r.handleBlameData(sender, body)
	case TagBlameVerification:
		return r.handleBlameVerification(sender, body)
	default:
		return ErrUnknownTag
	}
}
