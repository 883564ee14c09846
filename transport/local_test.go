package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/shuffleround/group"
	"go.dedis.ch/shuffleround/transport"
)

func TestLocalBroadcastExcludesSelf(t *testing.T) {
	net := transport.NewNetwork()
	a := net.Join(group.Identity("a"))
	b := net.Join(group.Identity("b"))
	c := net.Join(group.Identity("c"))

	var aGot, bGot, cGot bool
	a.RegisterInbound(func(payload []byte, sender group.Identity) { aGot = true })
	b.RegisterInbound(func(payload []byte, sender group.Identity) { bGot = true })
	c.RegisterInbound(func(payload []byte, sender group.Identity) { cGot = true })

	require.NoError(t, a.Broadcast([]byte("hello")))

	require.False(t, aGot, "broadcast must not loop back to the sender")
	require.True(t, bGot)
	require.True(t, cGot)
}

func TestLocalSendToSelfIsNoop(t *testing.T) {
	net := transport.NewNetwork()
	a := net.Join(group.Identity("a"))

	var got bool
	a.RegisterInbound(func(payload []byte, sender group.Identity) { got = true })

	require.NoError(t, a.Send([]byte("hello"), group.Identity("a")))
	require.False(t, got, "send-to-self must not be delivered by the transport")
}

func TestLocalSendUnknownDestination(t *testing.T) {
	net := transport.NewNetwork()
	a := net.Join(group.Identity("a"))
	require.Error(t, a.Send([]byte("hello"), group.Identity("ghost")))
}

func TestLocalPushDataAndClose(t *testing.T) {
	net := transport.NewNetwork()
	a := net.Join(group.Identity("a"))

	var got []byte
	a.OnPush(func(data []byte, source group.Identity) { got = data })
	a.PushData([]byte("plaintext"), group.Identity("a"))
	require.Equal(t, []byte("plaintext"), got)

	closed, _ := a.Closed()
	require.False(t, closed)
	a.Close("done")
	closed, reason := a.Closed()
	require.True(t, closed)
	require.Equal(t, "done", reason)
}
