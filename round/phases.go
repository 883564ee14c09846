package round

import (
	"bytes"

	"github.com/pkg/errors"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/shuffleround/crypto"
	"go.dedis.ch/shuffleround/group"
)

// handlePublicKeys implements phase 1 (spec §4.1): collecting every
// participant's ephemeral inner and outer public keys before anyone
// submits data. Offline is allowed alongside KeySharing because
// transport.Local's synchronous, recursive delivery means a peer's own
// broadcast can reach this participant before its own Start has run.
func (r *Round) handlePublicKeys(sender group.Identity, body []byte) error {
	if r.state != StateOffline && r.state != StateKeySharing {
		return ErrMisordered
	}
	idx, ok := r.group.Index(sender)
	if !ok {
		return ErrUnknownSender
	}
	var b publicKeysBody
	if err := decodeBody(body, &b); err != nil {
		return err
	}
	kidx := r.kidx(idx)
	if r.publicInnerKeys[kidx].IsSet() || r.publicOuterKeys[kidx].IsSet() {
		return ErrDuplicateKey
	}
	innerPub, err := r.keys.LoadPublic(b.InnerPublicKey)
	if err != nil {
		return ErrInvalidKey
	}
	outerPub, err := r.keys.LoadPublic(b.OuterPublicKey)
	if err != nil {
		return ErrInvalidKey
	}
	r.publicInnerKeys[kidx].Set(innerPub)
	r.publicOuterKeys[kidx].Set(outerPub)
	r.keysReceived++
	if r.keysReceived < r.n {
		return nil
	}
	r.state = StateDataSubmission
	return r.submitData()
}

// submitData implements phase 2: every participant onion-encrypts its
// contribution across every participant's inner public key, then wraps
// that inner ciphertext in a second onion across every outer public key
// (peeled one hop at a time during the shuffle cascade), and unicasts the
// result to the head. Both onions are built in raw participant order —
// keys are stored at slot kidx(sender) (spec §3), so building the ordered
// list a caller passes to Onion.Encrypt reads back through kidx a second
// time, converting kidx-indexed storage into the natural order the outer
// cascade (head first) and the raw-order final decryption both need.
func (r *Round) submitData() error {
	innerKeys, err := r.orderedInnerKeys()
	if err != nil {
		return err
	}
	innerCT, err := r.onion.Encrypt(innerKeys, r.myData)
	if err != nil {
		return errors.Wrap(err, "encrypting inner onion")
	}
	r.innerCiphertext = innerCT

	outerKeys, err := r.orderedOuterKeys()
	if err != nil {
		return err
	}
	outerCT, err := r.onion.Encrypt(outerKeys, innerCT)
	if err != nil {
		return errors.Wrap(err, "encrypting outer onion")
	}
	r.outerCiphertext = outerCT

	r.state = StateWaitingForShuffle
	return r.send(TagData, &dataBody{OuterCiphertext: outerCT}, r.group.ID(0))
}

// orderedInnerKeys and orderedOuterKeys convert the kidx-indexed public
// key storage (spec §3) back into raw participant order, i.e.
// keys[i] = stored[kidx(i)] — kidx is its own inverse, so applying it a
// second time undoes the phase 1 storage permutation.
func (r *Round) orderedInnerKeys() ([]crypto.PublicKey, error) {
	keys := make([]crypto.PublicKey, r.n)
	for i := 0; i < r.n; i++ {
		k, ok := r.publicInnerKeys[r.kidx(i)].Get()
		if !ok {
			return nil, errors.Errorf("missing inner public key for index %d", i)
		}
		keys[i] = k
	}
	return keys, nil
}

func (r *Round) orderedOuterKeys() ([]crypto.PublicKey, error) {
	keys := make([]crypto.PublicKey, r.n)
	for i := 0; i < r.n; i++ {
		k, ok := r.publicOuterKeys[r.kidx(i)].Get()
		if !ok {
			return nil, errors.Errorf("missing outer public key for index %d", i)
		}
		keys[i] = k
	}
	return keys, nil
}

// handleData is the head's collection point for phase 2. Only the head
// (index 0) ever receives this tag; it may arrive before or after the
// head has sent its own submission, so KeySharing and DataSubmission are
// allowed alongside WaitingForShuffle.
func (r *Round) handleData(sender group.Identity, body []byte) error {
	if r.localIdx != 0 {
		return ErrNotHead
	}
	switch r.state {
	case StateKeySharing, StateDataSubmission, StateWaitingForShuffle:
	default:
		return ErrMisordered
	}
	idx, ok := r.group.Index(sender)
	if !ok {
		return ErrUnknownSender
	}
	var b dataBody
	if err := decodeBody(body, &b); err != nil {
		return err
	}
	if len(b.OuterCiphertext) == 0 {
		return ErrEmptyData
	}
	if r.shuffleCiphertext[idx] != nil {
		if bytes.Equal(r.shuffleCiphertext[idx], b.OuterCiphertext) {
			return ErrDuplicateData
		}
		return ErrConflictingData
	}
	r.shuffleCiphertext[idx] = b.OuterCiphertext
	r.dataReceived++
	if r.dataReceived < r.n {
		return nil
	}
	r.state = StateShuffling
	return r.peelAndForward(append([][]byte(nil), r.shuffleCiphertext...))
}

// peelAndForward implements one hop of the shuffle cascade (spec §4.1
// phase 3): scan the working vector for duplicate ciphertexts (two
// senders submitting byte-identical outer ciphertexts collide at the
// head undetected, since handleData only rejects duplicates per sender),
// then strip this participant's own outer layer from every element of
// vec, permute the result, and either forward it to the successor or, if
// this participant is the tail, broadcast it as the fully outer-peeled
// vector that begins verification.
func (r *Round) peelAndForward(vec [][]byte) error {
	for i := 0; i < len(vec); i++ {
		for j := i + 1; j < len(vec); j++ {
			if bytes.Equal(vec[i], vec[j]) {
				r.startBlame("duplicate ciphertext detected in shuffle vector")
				return nil
			}
		}
	}

	cleartexts, bad, ok := r.onion.Decrypt(r.outerKey, vec)
	if !ok {
		r.startBlame("outer onion layer failed to decrypt")
		return nil
	}
	_ = bad
	r.onion.Randomize(cleartexts)

	next := r.group.Next(r.local)
	if next == group.ZeroIdentity {
		r.state = StateShuffleDone
		return r.broadcast(TagEncryptedData, &encryptedDataBody{Vector: cleartexts})
	}
	r.state = StateShuffleDone
	return r.send(TagShuffleData, &shuffleDataBody{Vector: cleartexts}, next)
}

// handleShuffleData implements the cascade hop for every non-head
// participant: it may only accept the vector from its immediate
// predecessor, matching the fixed ring order of spec §3.
func (r *Round) handleShuffleData(sender group.Identity, body []byte) error {
	if r.localIdx == 0 {
		return ErrMisordered
	}
	if r.state != StateWaitingForShuffle {
		return ErrMisordered
	}
	if sender != r.group.Previous(r.local) {
		return ErrWrongPredecessor
	}
	var b shuffleDataBody
	if err := decodeBody(body, &b); err != nil {
		return err
	}
	r.state = StateShuffling
	return r.peelAndForward(b.Vector)
}

// handleEncryptedData implements phase 4: the tail's broadcast of the
// fully outer-peeled, permuted vector begins the equivocation check.
func (r *Round) handleEncryptedData(sender group.Identity, body []byte) error {
	if sender != r.group.ID(r.n-1) {
		return ErrWrongTail
	}
	if r.state != StateShuffleDone {
		return ErrMisordered
	}
	var b encryptedDataBody
	if err := decodeBody(body, &b); err != nil {
		return err
	}
	if len(b.Vector) != r.n {
		return errors.Errorf("round: encrypted data vector has %d entries, want %d", len(b.Vector), r.n)
	}
	r.finalVector = b.Vector
	r.state = StateVerification
	return r.broadcastGo()
}

// broadcastGo implements phase 5: each participant first checks whether
// its own inner_ciphertext survived the shuffle intact inside the final
// vector — an equivocating cascade that silently dropped one victim's
// contribution would otherwise never surface, since every other entry
// still matches and the go/no-go hashes would agree. Only if the check
// passes does it hash the full set of announced keys plus the final
// vector and broadcast that hash so any two participants who were shown
// different vectors or key sets can be caught before private keys are
// revealed.
func (r *Round) broadcastGo() error {
	included := false
	for _, ct := range r.finalVector {
		if bytes.Equal(ct, r.innerCiphertext) {
			included = true
			break
		}
	}
	if !included {
		return r.broadcast(TagNoGo, &noGoBody{})
	}

	h := r.hashes.New()
	for i := 0; i < r.n; i++ {
		pub, _ := r.publicInnerKeys[i].Get()
		h.Write(pub.Bytes())
	}
	for i := 0; i < r.n; i++ {
		pub, _ := r.publicOuterKeys[i].Get()
		h.Write(pub.Bytes())
	}
	for _, ct := range r.finalVector {
		h.Write(ct)
	}
	r.broadcastHash = h.Sum()
	return r.broadcast(TagGo, &goBody{BroadcastHash: r.broadcastHash})
}

func (r *Round) handleGo(sender group.Identity, body []byte) error {
	switch r.state {
	case StateShuffleDone, StateVerification:
	default:
		return ErrMisordered
	}
	idx, ok := r.group.Index(sender)
	if !ok {
		return ErrUnknownSender
	}
	if r.goReceived[idx] {
		return ErrDuplicateVote
	}
	var b goBody
	if err := decodeBody(body, &b); err != nil {
		return err
	}
	r.goReceived[idx] = true
	r.broadcastHashes[idx] = b.BroadcastHash
	r.goCount++
	if r.goCount < r.n {
		return nil
	}
	return r.concludeVerification()
}

func (r *Round) handleNoGo(sender group.Identity, body []byte) error {
	switch r.state {
	case StateShuffleDone, StateVerification:
	default:
		return ErrMisordered
	}
	idx, ok := r.group.Index(sender)
	if !ok {
		return ErrUnknownSender
	}
	if r.goReceived[idx] {
		return ErrDuplicateVote
	}
	r.goReceived[idx] = true
	r.anyNoGo = true
	r.goCount++
	if r.goCount < r.n {
		return nil
	}
	return r.concludeVerification()
}

// concludeVerification implements phase 5's decision point: it only runs
// once every participant's vote is in (spec §4.1 phase 5), so that a
// blame trigger's evidence log holds every other participant's vote too,
// not just the ones that happened to arrive before the trigger fired.
func (r *Round) concludeVerification() error {
	if r.state != StateVerification {
		return nil
	}
	if r.anyNoGo {
		r.startBlame("participant broadcast no-go")
		return nil
	}
	for _, h := range r.broadcastHashes {
		if !bytes.Equal(h, r.broadcastHash) {
			r.startBlame("broadcast hash mismatch: equivocation detected")
			return nil
		}
	}
	r.state = StatePrivateKeySharing
	return r.broadcast(TagPrivateKey, &privateKeyBody{InnerPrivateKey: r.innerKey.Bytes()})
}

// handlePrivateKey implements phase 6's reveal step: once every
// participant's inner private key is announced and verified against the
// public key they committed to in phase 1, decryption can proceed.
func (r *Round) handlePrivateKey(sender group.Identity, body []byte) error {
	switch r.state {
	case StateVerification, StatePrivateKeySharing:
	default:
		return ErrMisordered
	}
	idx, ok := r.group.Index(sender)
	if !ok {
		return ErrUnknownSender
	}
	if r.privateInnerKeys[idx].IsSet() {
		return ErrDuplicatePrivateKey
	}
	var b privateKeyBody
	if err := decodeBody(body, &b); err != nil {
		return err
	}
	priv, err := r.keys.LoadPrivate(b.InnerPrivateKey)
	if err != nil {
		return ErrInvalidKey
	}
	pub, _ := r.publicInnerKeys[r.kidx(idx)].Get()
	if !priv.Matches(pub) {
		r.startBlame("revealed inner private key does not match its announced public key")
		return nil
	}
	r.privateInnerKeys[idx].Set(priv)
	r.privateKeysReceived++
	if r.privateKeysReceived < r.n {
		return nil
	}
	r.state = StateDecryption
	return r.decryptFinal()
}

// decryptFinal implements phase 6's final step: the inner onion built in
// submitData is peeled one full layer at a time across the entire vector,
// using every revealed inner private key in raw participant order
// (private_inner_keys is indexed by raw sender index per spec §3, unlike
// the kidx-indexed public arrays) — the same order submitData used, via
// kidx, to build the key list the onion was encrypted under. Peeling with
// the whole key set rather than any single participant's key preserves
// the shuffle's anonymity: no single layer identifies which entry belongs
// to which sender. A layer that fails to peel for any entry closes the
// round unsuccessfully without invoking blame — the source's own phase-6
// failure path, preserved as-is per spec §9's Open Questions rather than
// "fixed" into a blame trigger.
func (r *Round) decryptFinal() error {
	vec := r.finalVector
	for i := 0; i < r.n; i++ {
		priv, _ := r.privateInnerKeys[i].Get()
		out, bad, ok := r.onion.Decrypt(priv, vec)
		if !ok {
			log.Lvlf2("shuffleround: inner layer %d failed to decrypt for entries %v, closing round unsuccessfully", i, bad)
			r.state = StateFinished
			r.finished = true
			r.successful = false
			r.trans.Close("final decryption failed")
			return nil
		}
		vec = out
	}

	r.state = StateFinished
	r.finished = true
	for _, pt := range vec {
		if data := parseData(pt); data != nil {
			r.trans.PushData(data, group.ZeroIdentity)
		}
	}
	r.successful = true
	r.trans.Close("round complete")
	return nil
}
