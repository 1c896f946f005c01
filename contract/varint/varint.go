// Package varint implements the LEB128-style integer encoding shared by the
// staking payload and runestones. Values are unsigned and at most 128 bits
// wide; arithmetic is done on 256-bit integers so shifts never drop bits.
package varint

import (
	"fmt"

	"talos-staking/contract/contracterrors"

	"github.com/holiman/uint256"
)

const (
	// MaxBits is the widest value the codec carries.
	MaxBits = 128
	// MaxLen is the longest valid encoding in bytes.
	MaxLen = 19
)

// Encode returns the varint encoding of n.
func Encode(n *uint256.Int) ([]byte, error) {
	return Append(nil, n)
}

// EncodeUint64 never fails since every uint64 fits in 128 bits.
func EncodeUint64(v uint64) []byte {
	out, _ := Append(nil, uint256.NewInt(v))
	return out
}

// Append encodes n onto dst.
func Append(dst []byte, n *uint256.Int) ([]byte, error) {
	if n.BitLen() > MaxBits {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrOverflow,
			fmt.Sprintf("value needs %d bits, max %d", n.BitLen(), MaxBits),
		)
	}
	v := new(uint256.Int).Set(n)
	for v.GtUint64(0x7f) {
		dst = append(dst, byte(v.Uint64()&0x7f)|0x80)
		v.Rsh(v, 7)
	}
	return append(dst, byte(v.Uint64())), nil
}

// Decode reads one varint from the front of buf and returns the value and the
// number of bytes consumed.
func Decode(buf []byte) (*uint256.Int, int, error) {
	n := new(uint256.Int)
	for i := 0; ; i++ {
		if i >= MaxLen {
			return nil, 0, contracterrors.NewContractError(contracterrors.ErrOverlong, "more than 19 groups")
		}
		if i >= len(buf) {
			return nil, 0, contracterrors.NewContractError(contracterrors.ErrUnderflow, "buffer ended before terminating byte")
		}
		b := buf[i]
		if i == MaxLen-1 && b&0b0111_1100 != 0 {
			return nil, 0, contracterrors.NewContractError(contracterrors.ErrOverflow, "value exceeds 128 bits")
		}
		group := uint256.NewInt(uint64(b & 0x7f))
		n.Or(n, group.Lsh(group, uint(7*i)))
		if b&0x80 == 0 {
			return n, i + 1, nil
		}
	}
}

// DecodeAll decodes buf as a sequence of varints.
func DecodeAll(buf []byte) ([]uint256.Int, error) {
	var out []uint256.Int
	for i := 0; i < len(buf); {
		n, l, err := Decode(buf[i:])
		if err != nil {
			return nil, contracterrors.Prepend(err, fmt.Sprintf("offset %d", i))
		}
		out = append(out, *n)
		i += l
	}
	return out, nil
}
