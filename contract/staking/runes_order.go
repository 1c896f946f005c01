package staking

import (
	"fmt"

	"talos-staking/contract/constants"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/runestone"

	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
)

// BuildRunesOrder moves Stake units of a rune into the commit output.
// Rune outputs are taken in order until they cover the stake; any
// remainder goes back to the sender through a second edict. Plain BTC
// outputs then fund the dust outputs and the fee.
func BuildRunesOrder(req *RunesOrderRequest) (*Order, error) {
	if req.Stake.IsZero() {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "stake must be positive")
	}
	if err := checkFeeRate(req.FeeRate); err != nil {
		return nil, err
	}
	if err := checkUtxos(req.RuneUtxos, req.Balance); err != nil {
		return nil, err
	}
	from, err := resolveSender(req.PublicKey, req.Address, req.Network)
	if err != nil {
		return nil, err
	}
	descriptor, err := commitDescriptor(req.OrderID, req.LockTime, from.xOnly, req.Network)
	if err != nil {
		return nil, err
	}

	runeID := req.RuneID.String()
	var (
		runeInputs []*Utxo
		outputs    []*wire.TxOut
		edicts     []runestone.Edict
	)
	runeValue := new(uint256.Int)
	ok := false
	for _, utxo := range req.RuneUtxos {
		if utxo.RuneID != "" && utxo.RuneID != runeID {
			continue
		}
		runeInputs = append(runeInputs, utxo)
		runeValue.Add(runeValue, &utxo.RuneValue)
		if runeValue.Lt(&req.Stake) {
			continue
		}
		outputs = append(outputs, wire.NewTxOut(constants.DustAmount, descriptor.PkScript))
		edicts = append(edicts, runestone.Edict{ID: req.RuneID, Amount: req.Stake, Output: uint32(len(edicts))})
		remainder := new(uint256.Int).Sub(runeValue, &req.Stake)
		if !remainder.IsZero() {
			outputs = append(outputs, wire.NewTxOut(constants.DustAmount, from.pkScript))
			edicts = append(edicts, runestone.Edict{ID: req.RuneID, Amount: *remainder, Output: uint32(len(edicts))})
		}
		ok = true
		break
	}
	if !ok {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrBalance,
			fmt.Sprintf("rune %s: need %s, wallet holds %s", runeID, req.Stake.Dec(), runeValue.Dec()),
		)
	}

	if req.Payload != nil {
		payloadOut, err := req.Payload.TxOut()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, payloadOut)
	}
	if len(edicts) > 1 {
		stone := runestone.Runestone{Edicts: edicts}
		stoneOut, err := stone.TxOut()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, stoneOut)
	}

	regular, change, err := fundOutputs(req.FeeRate, runeInputs, req.Balance, outputs)
	if err != nil {
		return nil, err
	}
	if change > 0 {
		outputs = append(outputs, wire.NewTxOut(change, from.pkScript))
	}

	inputs := append(append([]*Utxo(nil), runeInputs...), regular...)
	packet, err := newPacket(inputs, outputs, 0, constants.RevealSequence, from)
	if err != nil {
		return nil, err
	}
	return &Order{
		Inputs:     inputs,
		Outputs:    outputs,
		Fee:        sumAmounts(inputs) - sumOutputs(outputs),
		Packet:     packet,
		Descriptor: descriptor,
	}, nil
}

// fundOutputs picks plain outputs in order until they cover what the fixed
// inputs do not, fee included. If the fixed inputs already suffice no plain
// output is used. The returned change is zero when it would be dust.
func fundOutputs(feeRate float64, fixed []*Utxo, balance []*Utxo, outputs []*wire.TxOut) ([]*Utxo, int64, error) {
	amount := sumOutputs(outputs) - sumAmounts(fixed)
	outputsVsize := 0.0
	for _, out := range outputs {
		outputsVsize += outputVsize(out.PkScript)
	}
	fee := func(numInputs int, hasChange bool) int64 {
		vsize := txOverheadVsize + taprootInputVsize*float64(numInputs) + outputsVsize
		if hasChange {
			vsize += taprootOutputVsize
		}
		return feeFor(feeRate, vsize)
	}

	var (
		selected []*Utxo
		value    int64
	)
	covers := func() (bool, int64) {
		numInputs := len(fixed) + len(selected)
		r := value - amount - fee(numInputs, false)
		if r < 0 {
			return false, 0
		}
		if r >= constants.DustAmount {
			if c := value - amount - fee(numInputs, true); c >= constants.DustAmount {
				return true, c
			}
		}
		return true, 0
	}

	if ok, change := covers(); ok {
		return nil, change, nil
	}
	for _, utxo := range balance {
		selected = append(selected, utxo)
		value += utxo.Amount
		if ok, change := covers(); ok {
			return selected, change, nil
		}
	}
	return nil, 0, contracterrors.NewContractError(
		contracterrors.ErrBalance,
		fmt.Sprintf("need %d sats plus fees, wallet holds %d", amount, value),
	)
}
