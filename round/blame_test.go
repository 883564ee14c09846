package round

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConflictingDataSubmissionIsRejected(t *testing.T) {
	h := newHeadHarness(t, 4, 16)
	require.NoError(t, h.head.Start())
	require.Equal(t, StateKeySharing, h.head.State())

	for i := 1; i < 4; i++ {
		h.sendPublicKeys(i)
	}
	require.Equal(t, StateWaitingForShuffle, h.head.State())

	h.sendData(1, []byte("node1-first-submission-aaaaaaaaaa"))
	h.sendData(2, []byte("node2-submission-bbbbbbbbbbbbbbbb"))
	require.Equal(t, StateWaitingForShuffle, h.head.State())
	beforeLen := h.head.log.Len()

	// node 1 submits a second, different contribution: a plain protocol
	// violation (spec §4.1 phase 2: "reject a second distinct message from
	// the same sender"), not a blame trigger.
	h.sendData(1, []byte("node1-second-different-submission"))
	require.Equal(t, StateWaitingForShuffle, h.head.State())
	require.Equal(t, 3, h.head.dataReceived)
	require.Equal(t, beforeLen, h.head.log.Len(), "rejected submission must not remain logged")
}

func TestDuplicateIdenticalDataIsRejectedWithoutBlame(t *testing.T) {
	h := newHeadHarness(t, 4, 16)
	require.NoError(t, h.head.Start())
	for i := 1; i < 4; i++ {
		h.sendPublicKeys(i)
	}
	require.Equal(t, StateWaitingForShuffle, h.head.State())

	same := []byte("node1-submission-cccccccccccccccc")
	h.sendData(1, same)
	h.sendData(1, same)

	require.Equal(t, StateWaitingForShuffle, h.head.State())
	require.Equal(t, 2, h.head.dataReceived) // own + node 1's single accepted submission
}

func TestDuplicateCiphertextAcrossSendersTriggersBlame(t *testing.T) {
	h := newHeadHarness(t, 4, 16)
	require.NoError(t, h.head.Start())
	for i := 1; i < 4; i++ {
		h.sendPublicKeys(i)
	}
	require.Equal(t, StateWaitingForShuffle, h.head.State())

	// Nodes 1 and 2 submit byte-identical outer ciphertexts. Per-sender
	// duplicate rejection in handleData never catches this — it only
	// compares a sender against its own prior submission — so the
	// collision must surface in peelAndForward's across-vector scan once
	// the head has every submission and starts the shuffle cascade (spec
	// §4.1 phase 3, §8 scenario 5).
	colliding := []byte("colliding-outer-ciphertext-bytes")
	h.sendData(1, colliding)
	h.sendData(2, colliding)
	require.Equal(t, StateWaitingForShuffle, h.head.State())

	h.sendData(3, []byte("node3-distinct-outer-ciphertext-x"))
	require.Equal(t, StateBlameInit, h.head.State())
}

func TestGroupHashMismatchTriggersBlame(t *testing.T) {
	h := newHeadHarness(t, 3, 16)
	require.NoError(t, h.head.Start())
	for i := 1; i < 3; i++ {
		h.sendPublicKeys(i)
	}
	require.Equal(t, StateWaitingForShuffle, h.head.State())

	// Force the head straight into Verification with a synthetic final
	// vector so the Go/NoGo mismatch path can be exercised without running
	// the full shuffle cascade.
	h.head.finalVector = [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	h.head.state = StateVerification
	h.head.broadcastHash = []byte("expected-hash")
	h.head.goReceived[0] = true
	h.head.broadcastHashes[0] = h.head.broadcastHash
	h.head.goCount = 1

	h.sendAs(TagGo, &goBody{BroadcastHash: []byte("expected-hash")}, 1, h.signers[1])
	require.Equal(t, StateVerification, h.head.State())

	h.sendAs(TagGo, &goBody{BroadcastHash: []byte("a-different-hash-entirely")}, 2, h.signers[2])
	require.Equal(t, StateBlameInit, h.head.State())
}
