package group_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/shuffleround/crypto"
	"go.dedis.ch/shuffleround/group"
)

func buildStatic(t *testing.T, n, self int) *group.Static {
	t.Helper()
	factory := crypto.NewKyberFactory()
	ids := make([]group.Identity, n)
	keys := make(map[group.Identity]crypto.PublicKey, n)
	for i := 0; i < n; i++ {
		priv, err := factory.Generate()
		require.NoError(t, err)
		ids[i] = group.Identity(string(rune('a' + i)))
		keys[ids[i]] = priv.Public()
	}
	return group.NewStatic(ids, keys, self)
}

func TestStaticIndexAndID(t *testing.T) {
	g := buildStatic(t, 4, 0)
	require.Equal(t, 4, g.Count())

	idx, ok := g.Index(group.Identity("c"))
	require.True(t, ok)
	require.Equal(t, 2, idx)
	require.Equal(t, group.Identity("c"), g.ID(2))

	_, ok = g.Index(group.Identity("nonexistent"))
	require.False(t, ok)
}

func TestStaticNeighbours(t *testing.T) {
	g := buildStatic(t, 3, 1)
	require.Equal(t, group.ZeroIdentity, g.Previous(g.ID(0)))
	require.Equal(t, g.ID(0), g.Previous(g.ID(1)))
	require.Equal(t, g.ID(2), g.Next(g.ID(1)))
	require.Equal(t, group.ZeroIdentity, g.Next(g.ID(2)))
	require.Equal(t, 1, g.Self())
}
