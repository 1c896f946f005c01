// Package payload is the staking record embedded in a commit transaction:
// a tagged varint stream carried by an OP_RETURN output marked with 0x60.
package payload

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/protocol"
)

// Magic is the opcode that follows OP_RETURN in a staking output (OP_16).
const Magic byte = 0x60

const (
	DefaultProtocol uint64 = 1
	DefaultVersion  uint64 = 0
	DefaultVout     uint32 = 0
)

type Payload struct {
	Protocol uint64
	Version  uint64
	Vout     uint32
	LockTime uint32
	ID       [4]byte
	Staker   [32]byte
}

// New fills protocol, version and vout with their defaults.
func New(id [4]byte, staker [32]byte, lockTime uint32) *Payload {
	return &Payload{
		Protocol: DefaultProtocol,
		Version:  DefaultVersion,
		Vout:     DefaultVout,
		LockTime: lockTime,
		ID:       id,
		Staker:   staker,
	}
}

// IDHex renders the order id as 0x-prefixed hex.
func (p *Payload) IDHex() string {
	return "0x" + hex.EncodeToString(p.ID[:])
}

func (p *Payload) StakerHex() string {
	return "0x" + hex.EncodeToString(p.Staker[:])
}

// Bytes serializes the record as a varint stream without the script wrapper.
func (p *Payload) Bytes() ([]byte, error) {
	var enc protocol.Encoder
	enc.PushUint64(protocol.TagProtocol, p.Protocol)
	enc.PushUint64(protocol.TagVersion, p.Version)
	enc.PushUint64(protocol.TagOutput, uint64(p.Vout))
	enc.PushUint64(protocol.TagTime, uint64(p.LockTime))
	enc.PushUint64(protocol.TagId, uint64(binary.BigEndian.Uint32(p.ID[:])))
	enc.AppendWho(p.Staker)
	return enc.Bytes()
}

// Decode parses a varint stream into a record. Every scalar field and a
// full 32-byte staker are required.
func Decode(buf []byte) (*Payload, error) {
	msg, err := protocol.Decode(buf)
	if err != nil {
		return nil, contracterrors.Prepend(err, "payload")
	}

	id, err := takeUint(msg, protocol.TagId, math.MaxUint32)
	if err != nil {
		return nil, err
	}
	proto, err := takeUint(msg, protocol.TagProtocol, math.MaxUint64)
	if err != nil {
		return nil, err
	}
	version, err := takeUint(msg, protocol.TagVersion, math.MaxUint64)
	if err != nil {
		return nil, err
	}
	lockTime, err := takeUint(msg, protocol.TagTime, math.MaxUint32)
	if err != nil {
		return nil, err
	}
	vout, err := takeUint(msg, protocol.TagOutput, math.MaxUint32)
	if err != nil {
		return nil, err
	}

	staker := msg.Staker()
	if len(staker) != 32 {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrBadStakerLength,
			fmt.Sprintf("staker is %d bytes", len(staker)),
		)
	}

	p := &Payload{
		Protocol: proto,
		Version:  version,
		Vout:     uint32(vout),
		LockTime: uint32(lockTime),
	}
	binary.BigEndian.PutUint32(p.ID[:], uint32(id))
	copy(p.Staker[:], staker)
	return p, nil
}

func takeUint(msg *protocol.Message, tag protocol.Tag, max uint64) (uint64, error) {
	values, ok := msg.Take(tag, 1)
	if !ok {
		return 0, contracterrors.NewContractError(contracterrors.ErrMissingField, tag.String())
	}
	v := values[0]
	if !v.IsUint64() || v.Uint64() > max {
		return 0, contracterrors.NewContractError(
			contracterrors.ErrFieldRange,
			fmt.Sprintf("%s value %s exceeds %d", tag, v.Dec(), max),
		)
	}
	return v.Uint64(), nil
}

// ParseID accepts 8 hex characters with an optional 0x prefix.
func ParseID(s string) ([4]byte, error) {
	var id [4]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "order id")
	}
	if len(raw) != len(id) {
		return id, contracterrors.NewContractError(
			contracterrors.ErrInvalidIdLength,
			fmt.Sprintf("order id is %d bytes, want 4", len(raw)),
		)
	}
	copy(id[:], raw)
	return id, nil
}

// ParseStaker accepts 64 hex characters with an optional 0x prefix.
func ParseStaker(s string) ([32]byte, error) {
	var staker [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return staker, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "staker")
	}
	if len(raw) != len(staker) {
		return staker, contracterrors.NewContractError(
			contracterrors.ErrBadStakerLength,
			fmt.Sprintf("staker is %d bytes", len(raw)),
		)
	}
	copy(staker[:], raw)
	return staker, nil
}
