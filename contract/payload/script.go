package payload

import (
	"talos-staking/contract/constants"
	"talos-staking/contract/contracterrors"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Encipher wraps the record in a null-data script:
// OP_RETURN OP_16 <pushes of at most 520 bytes>.
func (p *Payload) Encipher() ([]byte, error) {
	data, err := p.Bytes()
	if err != nil {
		return nil, err
	}

	scriptBuilder := txscript.NewScriptBuilder()
	scriptBuilder.AddOp(txscript.OP_RETURN) // OP_RETURN
	scriptBuilder.AddOp(Magic)              // OP_16
	for start := 0; start < len(data); start += constants.MaxPushSize {
		end := min(start+constants.MaxPushSize, len(data))
		scriptBuilder.AddData(data[start:end])
	}
	return scriptBuilder.Script()
}

// TxOut returns a zero-value output carrying the record.
func (p *Payload) TxOut() (*wire.TxOut, error) {
	script, err := p.Encipher()
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(0, script), nil
}

// Decipher reads the record from the first staking output of tx.
func Decipher(tx *wire.MsgTx) (*Payload, error) {
	data, err := Extract(tx)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Extract returns the concatenated pushes of the first output whose script
// starts with OP_RETURN OP_16. Outputs with a different marker are skipped.
func Extract(tx *wire.MsgTx) ([]byte, error) {
	sawNullData := false
	for _, out := range tx.TxOut {
		data, ok, isNullData := scriptPayload(out.PkScript)
		if ok {
			return data, nil
		}
		sawNullData = sawNullData || isNullData
	}
	if sawNullData {
		return nil, contracterrors.NewContractError(contracterrors.ErrBadMagic, "no OP_RETURN output carries the staking marker")
	}
	return nil, contracterrors.NewContractError(contracterrors.ErrNoPayload, "transaction has no OP_RETURN output")
}

// DecodeScript decodes a single null-data script.
func DecodeScript(script []byte) (*Payload, error) {
	data, ok, isNullData := scriptPayload(script)
	if !ok {
		if isNullData {
			return nil, contracterrors.NewContractError(contracterrors.ErrBadMagic, "missing staking marker")
		}
		return nil, contracterrors.NewContractError(contracterrors.ErrNoPayload, "not an OP_RETURN script")
	}
	return Decode(data)
}

func scriptPayload(script []byte) (data []byte, ok bool, isNullData bool) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, false, false
	}
	if !tokenizer.Next() || tokenizer.Opcode() != Magic {
		return nil, false, true
	}
	data = []byte{}
	for tokenizer.Next() {
		data = append(data, PushedBytes(tokenizer.Opcode(), tokenizer.Data())...)
	}
	if tokenizer.Err() != nil {
		return nil, false, true
	}
	return data, true, true
}

// PushedBytes undoes minimal push encoding, where single bytes 0..16 and
// 0x81 become small-integer opcodes. Chunks are never empty so OP_0 always
// stands for a zero byte.
func PushedBytes(op byte, data []byte) []byte {
	switch {
	case op == txscript.OP_0:
		return []byte{0x00}
	case op >= txscript.OP_1 && op <= txscript.OP_16:
		return []byte{op - txscript.OP_1 + 1}
	case op == txscript.OP_1NEGATE:
		return []byte{0x81}
	case op <= txscript.OP_PUSHDATA4:
		return data
	}
	return nil
}
