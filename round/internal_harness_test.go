package round

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/shuffleround/crypto"
	"go.dedis.ch/shuffleround/group"
	"go.dedis.ch/shuffleround/onion"
	"go.dedis.ch/shuffleround/transport"
)

// headHarness drives a single head Round directly, addressing the rest of
// the group as unwired transport stubs so tests can hand-craft exactly
// the sequence of wire messages a scenario needs without depending on the
// full N-node cascade completing.
type headHarness struct {
	t        *testing.T
	head     *Round
	factory  *crypto.KyberFactory
	signers  []crypto.PrivateKey
	ids      []group.Identity
	roundID  []byte
}

func newHeadHarness(t *testing.T, n, blockSize int) *headHarness {
	t.Helper()
	factory := crypto.NewKyberFactory()
	ids := make([]group.Identity, n)
	signers := make([]crypto.PrivateKey, n)
	keys := make(map[group.Identity]crypto.PublicKey, n)
	for i := 0; i < n; i++ {
		priv, err := factory.Generate()
		require.NoError(t, err)
		ids[i] = group.Identity(fmt.Sprintf("node-%d", i))
		signers[i] = priv
		keys[ids[i]] = priv.Public()
	}

	net := transport.NewNetwork()
	for i := 1; i < n; i++ {
		net.Join(ids[i])
	}
	headLocal := net.Join(ids[0])

	view := group.NewStatic(ids, keys, 0)
	deps := Deps{
		Group:     view,
		Transport: headLocal,
		Onion:     onion.New(),
		Keys:      factory,
		Hashes:    crypto.Sha256HashFactory{},
		Signer:    signers[0],
	}
	roundID := []byte("harness-test-round")
	head, err := New(Config{BlockSize: blockSize}, ID{RoundID: roundID, Local: []byte(ids[0])}, deps, []byte("head-data"))
	require.NoError(t, err)

	return &headHarness{t: t, head: head, factory: factory, signers: signers, ids: ids, roundID: roundID}
}

func (h *headHarness) sendPublicKeys(i int) {
	h.t.Helper()
	inner, err := h.factory.Generate()
	require.NoError(h.t, err)
	outer, err := h.factory.Generate()
	require.NoError(h.t, err)
	body := &publicKeysBody{InnerPublicKey: inner.Public().Bytes(), OuterPublicKey: outer.Public().Bytes()}
	h.sendAs(TagPublicKeys, body, i, h.signers[i])
}

func (h *headHarness) sendData(i int, ciphertext []byte) {
	h.t.Helper()
	h.sendAs(TagData, &dataBody{OuterCiphertext: ciphertext}, i, h.signers[i])
}

// sendAs encodes body under tag, signs it with signer, and dispatches it
// to the head as if it came from ids[i] — signer need not match ids[i]'s
// registered key, which is exactly how a forged-signature test uses this.
func (h *headHarness) sendAs(tag Tag, body interface{}, i int, signer crypto.PrivateKey) {
	h.t.Helper()
	payload, err := encodeFrame(tag, h.roundID, body)
	require.NoError(h.t, err)
	sig, err := signer.Sign(payload)
	require.NoError(h.t, err)
	h.head.Dispatch(append(payload, sig...), h.ids[i])
}
