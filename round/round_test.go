package round_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/shuffleround/blame"
	"go.dedis.ch/shuffleround/crypto"
	"go.dedis.ch/shuffleround/group"
	"go.dedis.ch/shuffleround/onion"
	"go.dedis.ch/shuffleround/round"
	"go.dedis.ch/shuffleround/transport"
)

// harness runs a full N-node round in one process over transport.Local,
// where every Broadcast/Send call is delivered synchronously — Start
// cascades the entire round to completion before the last node's Start
// call returns.
type harness struct {
	rounds  []*round.Round
	ids     []group.Identity
	results [][]byte
}

func buildHarness(t *testing.T, n, blockSize int, data [][]byte) *harness {
	t.Helper()
	factory := crypto.NewKyberFactory()
	ids := make([]group.Identity, n)
	signers := make([]crypto.PrivateKey, n)
	keys := make(map[group.Identity]crypto.PublicKey, n)
	for i := 0; i < n; i++ {
		priv, err := factory.Generate()
		require.NoError(t, err)
		id := group.Identity(fmt.Sprintf("node-%d", i))
		ids[i] = id
		signers[i] = priv
		keys[id] = priv.Public()
	}

	net := transport.NewNetwork()
	h := &harness{ids: ids, results: make([][]byte, n)}
	roundID := []byte("round-test")

	for i := 0; i < n; i++ {
		idx := i
		view := group.NewStatic(ids, keys, idx)
		local := net.Join(ids[idx])
		// Every node pushes the same recovered plaintexts in the same
		// order, so its k-th push lands in results[k]; slots past the last
		// push stay empty (dropped default blocks).
		pushed := 0
		local.OnPush(func(data []byte, _ group.Identity) {
			h.results[pushed] = data
			pushed++
		})

		var payload []byte
		if data != nil {
			payload = data[idx]
		}
		deps := round.Deps{
			Group:     view,
			Transport: local,
			Onion:     onion.New(),
			Keys:      factory,
			Hashes:    crypto.Sha256HashFactory{},
			Signer:    signers[idx],
			Replayer:  blame.Reference{},
		}
		r, err := round.New(round.Config{BlockSize: blockSize}, round.ID{RoundID: roundID, Local: []byte(ids[idx])}, deps, payload)
		require.NoError(t, err)
		h.rounds = append(h.rounds, r)
	}
	return h
}

func (h *harness) startAll(t *testing.T) {
	t.Helper()
	for i, r := range h.rounds {
		require.NoError(t, r.Start(), "node %d", i)
	}
}

func TestRoundHappyPath(t *testing.T) {
	for _, n := range []int{3, 5, 7} {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			data := make([][]byte, n)
			for i := range data {
				data[i] = []byte(fmt.Sprintf("hello-%d", i))
			}
			h := buildHarness(t, n, 32, data)
			h.startAll(t)

			for i, r := range h.rounds {
				require.True(t, r.Finished(), "node %d", i)
				require.True(t, r.Successful(), "node %d", i)
			}

			seen := make(map[string]bool)
			for _, got := range h.results {
				require.NotEmpty(t, got)
				seen[string(got)] = true
			}
			for _, want := range data {
				require.True(t, seen[string(want)], "missing contribution %q", want)
			}
		})
	}
}

func TestRoundDefaultDataParticipant(t *testing.T) {
	n := 4
	data := make([][]byte, n)
	for i := 1; i < n; i++ {
		data[i] = []byte(fmt.Sprintf("hi-%d", i))
	}
	// data[0] is left nil: that participant contributes the default block.
	h := buildHarness(t, n, 32, data)
	h.startAll(t)

	for i, r := range h.rounds {
		require.True(t, r.Successful(), "node %d", i)
	}
	nonEmpty := 0
	for _, got := range h.results {
		if len(got) > 0 {
			nonEmpty++
		}
	}
	require.Equal(t, n-1, nonEmpty)
}

func TestRoundOversizedDataSubstitutesDefault(t *testing.T) {
	n := 4
	blockSize := 8
	data := make([][]byte, n)
	for i := 1; i < n; i++ {
		data[i] = []byte(fmt.Sprintf("hi-%d", i))
	}
	data[0] = []byte("this contribution is far too long for the block size")
	h := buildHarness(t, n, blockSize, data)
	h.startAll(t)

	for i, r := range h.rounds {
		require.True(t, r.Successful(), "node %d", i)
	}
	empties := 0
	for _, got := range h.results {
		if len(got) == 0 {
			empties++
		}
	}
	require.Equal(t, 1, empties, "exactly the oversized submitter's slot should fall back to the default block")
}

func TestRoundRejectsDoubleStart(t *testing.T) {
	h := buildHarness(t, 3, 16, nil)
	require.NoError(t, h.rounds[0].Start())
	require.ErrorIs(t, h.rounds[0].Start(), round.ErrAlreadyStarted)
}
