package round

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/shuffleround/group"
)

func TestPrepareAndParseDataRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte("x"), 60),
	}
	for _, data := range cases {
		block := prepareData(data, 68)
		require.Len(t, block, 68)
		got := parseData(block)
		if len(data) == 0 {
			require.Nil(t, got)
			continue
		}
		require.Equal(t, data, got)
	}
}

func TestParseDataRejectsMalformedLength(t *testing.T) {
	block := make([]byte, 68)
	block[0] = 0xff // length prefix far larger than the block itself
	require.Nil(t, parseData(block))
	require.Nil(t, parseData(nil))
	require.Nil(t, parseData([]byte{1, 2}))
}

func TestLogAppendAndPop(t *testing.T) {
	l := NewLog()
	require.Equal(t, 0, l.Len())
	l.Append(group.Identity("a"), []byte("first"))
	l.Append(group.Identity("b"), []byte("second"))
	require.Equal(t, 2, l.Len())

	l.PopLast()
	require.Equal(t, 1, l.Len())
	require.Equal(t, group.Identity("a"), l.Entries()[0].Sender)

	l.PopLast()
	l.PopLast()
	require.Equal(t, 0, l.Len())
}

func TestLogSerializeRoundTrip(t *testing.T) {
	l := NewLog()
	l.Append(group.Identity("a"), []byte("payload-a"))
	l.Append(group.Identity("b"), []byte("payload-b"))

	data, err := l.Serialize()
	require.NoError(t, err)

	got, err := DeserializeLog(data)
	require.NoError(t, err)
	require.Equal(t, l.Entries(), got.Entries())
}

func TestFillOnceSetsAtMostOnce(t *testing.T) {
	var f FillOnce[int]
	_, ok := f.Get()
	require.False(t, ok)

	require.True(t, f.Set(7))
	require.False(t, f.Set(9))

	v, ok := f.Get()
	require.True(t, ok)
	require.Equal(t, 7, v)
}
