package protocol_test

import (
	"bytes"
	"testing"

	"talos-staking/contract/protocol"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(vs ...uint64) []uint256.Int {
	out := make([]uint256.Int, len(vs))
	for i, v := range vs {
		out[i] = *uint256.NewInt(v)
	}
	return out
}

func TestTakeConsumesInOrder(t *testing.T) {
	m := protocol.FromIntegers(ints(11, 1, 11, 2, 56, 900))

	got, ok := m.Take(protocol.TagOutput, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), got[0].Uint64())
	assert.True(t, m.Has(protocol.TagOutput))

	got, ok = m.Take(protocol.TagOutput, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(2), got[0].Uint64())
	assert.False(t, m.Has(protocol.TagOutput))

	_, ok = m.Take(protocol.TagOutput, 1)
	assert.False(t, ok)
}

func TestTakeReportsShortQueueAsAbsent(t *testing.T) {
	m := protocol.FromIntegers(ints(56, 900))

	_, ok := m.Take(protocol.TagTime, 2)
	assert.False(t, ok)

	// nothing was consumed by the failed take
	got, ok := m.Take(protocol.TagTime, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(900), got[0].Uint64())

	_, ok = m.Take(protocol.TagId, 1)
	assert.False(t, ok)
}

func TestDanglingTagEndsScan(t *testing.T) {
	m := protocol.FromIntegers(ints(100, 105, 99))
	assert.True(t, m.Has(protocol.TagProtocol))
	assert.False(t, m.Has(protocol.TagVersion))
}

func TestWhoHalves(t *testing.T) {
	var staker [32]byte
	for i := range staker {
		staker[i] = byte(i + 1)
	}

	var enc protocol.Encoder
	enc.PushUint64(protocol.TagTime, 42)
	enc.AppendWho(staker)
	enc.PushUint64(protocol.TagOutput, 3)
	require.Len(t, enc.Integers(), 7)

	buf, err := enc.Bytes()
	require.NoError(t, err)

	m, err := protocol.Decode(buf)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(staker[:], m.Staker()))

	out, ok := m.Take(protocol.TagOutput, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(3), out[0].Uint64())

	// the high half is what remains queued under Who
	who, ok := m.Take(protocol.TagWho, 1)
	require.True(t, ok)
	hi := who[0].Bytes32()
	assert.Equal(t, staker[:16], hi[16:])
}

func TestWhoMissingHalf(t *testing.T) {
	m := protocol.FromIntegers(ints(56, 1, 8, 77))
	assert.Empty(t, m.Staker())
	assert.False(t, m.Has(protocol.TagWho))
	assert.True(t, m.Has(protocol.TagTime))
}

func TestTagNames(t *testing.T) {
	assert.Equal(t, "protocol", protocol.TagProtocol.String())
	assert.Equal(t, "who", protocol.TagWho.String())
	assert.Equal(t, "unknown", protocol.Tag(3).String())
}
