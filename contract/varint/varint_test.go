package varint_test

import (
	"bytes"
	"errors"
	"testing"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/varint"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxU128() *uint256.Int {
	one := uint256.NewInt(1)
	v := new(uint256.Int).Lsh(one, 128)
	return v.SubUint64(v, 1)
}

func TestKnownVectors(t *testing.T) {
	cases := []struct {
		value uint64
		enc   []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		assert.Equal(t, c.enc, varint.EncodeUint64(c.value), "encode %d", c.value)
		n, l, err := varint.Decode(c.enc)
		require.NoError(t, err)
		assert.Equal(t, c.value, n.Uint64())
		assert.Equal(t, len(c.enc), l)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(0x7f),
		uint256.NewInt(0xffffffff),
		uint256.NewInt(^uint64(0)),
		new(uint256.Int).Lsh(uint256.NewInt(1), 64),
		new(uint256.Int).Lsh(uint256.NewInt(0xdeadbeef), 90),
		maxU128(),
	}
	for _, v := range values {
		enc, err := varint.Encode(v)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(enc), varint.MaxLen)

		dec, l, err := varint.Decode(enc)
		require.NoError(t, err)
		assert.True(t, dec.Eq(v), "round trip %s", v.Hex())
		assert.Equal(t, len(enc), l)
	}

	enc, err := varint.Encode(maxU128())
	require.NoError(t, err)
	assert.Len(t, enc, 19)
	assert.Equal(t, byte(0x03), enc[18])
}

func TestEncodeTooWide(t *testing.T) {
	_, err := varint.Encode(new(uint256.Int).Lsh(uint256.NewInt(1), 128))
	assert.True(t, errors.Is(err, contracterrors.ErrOverflow))
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := varint.Decode(bytes.Repeat([]byte{0x80}, 20))
	assert.True(t, errors.Is(err, contracterrors.ErrOverlong), "got %v", err)

	_, _, err = varint.Decode([]byte{0x80, 0x80})
	assert.True(t, errors.Is(err, contracterrors.ErrUnderflow), "got %v", err)

	_, _, err = varint.Decode(nil)
	assert.True(t, errors.Is(err, contracterrors.ErrUnderflow), "got %v", err)

	overflow := append(bytes.Repeat([]byte{0x80}, 18), 0x04)
	_, _, err = varint.Decode(overflow)
	assert.True(t, errors.Is(err, contracterrors.ErrOverflow), "got %v", err)
}

func TestDecodeStopsAtTerminator(t *testing.T) {
	n, l, err := varint.Decode([]byte{0xac, 0x02, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, uint64(300), n.Uint64())
	assert.Equal(t, 2, l)
}

func TestDecodeAll(t *testing.T) {
	var buf []byte
	for _, v := range []uint64{100, 1, 11, 0, 56, 1000} {
		buf = append(buf, varint.EncodeUint64(v)...)
	}
	ints, err := varint.DecodeAll(buf)
	require.NoError(t, err)
	require.Len(t, ints, 6)
	assert.Equal(t, uint64(1000), ints[5].Uint64())

	_, err = varint.DecodeAll(append(buf, 0x80))
	assert.True(t, errors.Is(err, contracterrors.ErrUnderflow))
}
