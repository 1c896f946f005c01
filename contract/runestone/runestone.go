// Package runestone encodes the rune transfer instructions that accompany a
// rune staking commit: a list of edicts behind OP_RETURN OP_13.
package runestone

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"talos-staking/contract/constants"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/payload"
	"talos-staking/contract/protocol"
	"talos-staking/contract/varint"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
)

// RuneID is the etching location of a rune, written "block:tx".
type RuneID struct {
	Block uint64
	Tx    uint32
}

func ParseRuneID(s string) (RuneID, error) {
	blockStr, txStr, ok := strings.Cut(s, ":")
	if !ok {
		return RuneID{}, contracterrors.NewContractError(contracterrors.ErrInput, fmt.Sprintf("rune id %q is not block:tx", s))
	}
	block, err := strconv.ParseUint(blockStr, 10, 64)
	if err != nil {
		return RuneID{}, contracterrors.WrapContractError(contracterrors.ErrInput, err, "rune id block")
	}
	tx, err := strconv.ParseUint(txStr, 10, 32)
	if err != nil {
		return RuneID{}, contracterrors.WrapContractError(contracterrors.ErrInput, err, "rune id tx")
	}
	return RuneID{Block: block, Tx: uint32(tx)}, nil
}

func (id RuneID) String() string {
	return fmt.Sprintf("%d:%d", id.Block, id.Tx)
}

func (id RuneID) less(other RuneID) bool {
	if id.Block != other.Block {
		return id.Block < other.Block
	}
	return id.Tx < other.Tx
}

// Edict moves Amount of rune ID to transaction output Output.
type Edict struct {
	ID     RuneID
	Amount uint256.Int
	Output uint32
}

type Runestone struct {
	Edicts []Edict
}

// Payload returns the integer stream: the Body tag then each edict, sorted
// by rune id, as (block delta, tx, amount, output). The tx field is a delta
// only when the block delta is zero.
func (r *Runestone) Payload() ([]byte, error) {
	edicts := slices.Clone(r.Edicts)
	slices.SortStableFunc(edicts, func(a, b Edict) int {
		switch {
		case a.ID.less(b.ID):
			return -1
		case b.ID.less(a.ID):
			return 1
		}
		return 0
	})

	out := varint.EncodeUint64(uint64(protocol.TagNumber))
	var (
		previous RuneID
		err      error
	)
	for _, edict := range edicts {
		blockDelta := edict.ID.Block - previous.Block
		txDelta := uint64(edict.ID.Tx)
		if blockDelta == 0 {
			txDelta = uint64(edict.ID.Tx - previous.Tx)
		}
		out = append(out, varint.EncodeUint64(blockDelta)...)
		out = append(out, varint.EncodeUint64(txDelta)...)
		out, err = varint.Append(out, &edict.Amount)
		if err != nil {
			return nil, contracterrors.Prepend(err, "edict amount")
		}
		out = append(out, varint.EncodeUint64(uint64(edict.Output))...)
		previous = edict.ID
	}
	return out, nil
}

// Encipher returns OP_RETURN OP_13 followed by the payload in pushes of at
// most 520 bytes.
func (r *Runestone) Encipher() ([]byte, error) {
	data, err := r.Payload()
	if err != nil {
		return nil, err
	}
	scriptBuilder := txscript.NewScriptBuilder()
	scriptBuilder.AddOp(txscript.OP_RETURN) // OP_RETURN
	scriptBuilder.AddOp(txscript.OP_13)     // OP_13
	for start := 0; start < len(data); start += constants.MaxPushSize {
		end := min(start+constants.MaxPushSize, len(data))
		scriptBuilder.AddData(data[start:end])
	}
	return scriptBuilder.Script()
}

func (r *Runestone) TxOut() (*wire.TxOut, error) {
	script, err := r.Encipher()
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(0, script), nil
}

// Decipher reads the edicts back out of a runestone script. Only the
// edict section is interpreted; fields before the Body tag are skipped.
func Decipher(script []byte) (*Runestone, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, contracterrors.NewContractError(contracterrors.ErrNoPayload, "not an OP_RETURN script")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_13 {
		return nil, contracterrors.NewContractError(contracterrors.ErrBadMagic, "missing OP_13 marker")
	}
	var data []byte
	for tokenizer.Next() {
		if tokenizer.Opcode() > txscript.OP_16 {
			return nil, contracterrors.NewContractError(
				contracterrors.ErrInput,
				fmt.Sprintf("opcode %#x in runestone", tokenizer.Opcode()),
			)
		}
		data = append(data, payload.PushedBytes(tokenizer.Opcode(), tokenizer.Data())...)
	}
	if err := tokenizer.Err(); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInput, err, "runestone script")
	}

	ints, err := varint.DecodeAll(data)
	if err != nil {
		return nil, contracterrors.Prepend(err, "runestone")
	}

	i := 0
	for i+1 < len(ints) && !ints[i].IsZero() {
		i += 2
	}
	if i >= len(ints) || !ints[i].IsZero() {
		return &Runestone{}, nil
	}
	body := ints[i+1:]
	if len(body)%4 != 0 {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "truncated edict")
	}

	r := &Runestone{}
	var previous RuneID
	for j := 0; j < len(body); j += 4 {
		if !body[j].IsUint64() || !body[j+1].IsUint64() || !body[j+3].IsUint64() {
			return nil, contracterrors.NewContractError(contracterrors.ErrFieldRange, "edict field too wide")
		}
		id := RuneID{Block: previous.Block + body[j].Uint64()}
		if body[j].IsZero() {
			id.Tx = previous.Tx + uint32(body[j+1].Uint64())
		} else {
			id.Tx = uint32(body[j+1].Uint64())
		}
		r.Edicts = append(r.Edicts, Edict{ID: id, Amount: body[j+2], Output: uint32(body[j+3].Uint64())})
		previous = id
	}
	return r, nil
}
