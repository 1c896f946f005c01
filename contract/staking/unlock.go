package staking

import (
	"bytes"
	"fmt"

	"talos-staking/contract/constants"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/payload"
	"talos-staking/contract/proof"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// BuildUnlock spends a locked commit output through its script leaf once
// the lock height is reached. The locked output is input 0, output 0 pays
// dust to the owner and the rest returns as change. Wallet outputs are
// added only when the locked value cannot cover the fee.
func BuildUnlock(req *UnlockRequest) (*Order, error) {
	if req.Locked == nil {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "missing locked output")
	}
	if err := checkFeeRate(req.FeeRate); err != nil {
		return nil, err
	}
	if err := checkUtxos([]*Utxo{req.Locked}, req.Balance); err != nil {
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
	if len(req.Locked.PkScript) > 0 && !bytes.Equal(req.Locked.PkScript, descriptor.PkScript) {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrTransaction,
			"locked output does not pay the commit script",
		)
	}
	locked := *req.Locked
	locked.PkScript = descriptor.PkScript

	leafLen := len(descriptor.LeafScript)
	outputValue := constants.DustAmount
	inputValue := locked.Amount
	var (
		regular []*Utxo
		change  int64
	)
	covers := func() bool {
		fee := UnlockFee(req.FeeRate, len(regular), 1, leafLen)
		r := inputValue - outputValue - fee
		if r <= 0 {
			return false
		}
		if r >= constants.DustAmount {
			fee = UnlockFee(req.FeeRate, len(regular), 2, leafLen)
			if c := inputValue - outputValue - fee; c >= constants.DustAmount {
				change = c
			}
		}
		return true
	}
	ok := covers()
	for i := 0; !ok && i < len(req.Balance); i++ {
		regular = append(regular, req.Balance[i])
		inputValue += req.Balance[i].Amount
		ok = covers()
	}
	if !ok {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrBalance,
			fmt.Sprintf("locked %d plus wallet %d cannot pay the unlock", locked.Amount, sumAmounts(req.Balance)),
		)
	}

	outputs := []*wire.TxOut{wire.NewTxOut(outputValue, from.pkScript)}
	if change > 0 {
		outputs = append(outputs, wire.NewTxOut(change, from.pkScript))
	}
	inputs := append([]*Utxo{&locked}, regular...)

	packet, err := newPacket(inputs, outputs, req.LockTime, constants.RevealSequence, from)
	if err != nil {
		return nil, err
	}
	packet.Inputs[0].TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
		ControlBlock: descriptor.Redeem.ControlBlock,
		Script:       descriptor.Redeem.LeafScript,
		LeafVersion:  descriptor.Redeem.LeafVersion,
	}}

	return &Order{
		Inputs:     inputs,
		Outputs:    outputs,
		Fee:        sumAmounts(inputs) - sumOutputs(outputs),
		Packet:     packet,
		Descriptor: descriptor,
	}, nil
}

type CommitUnlockRequest struct {
	CommitTx *wire.MsgTx
	// Proof, when set, replaces CommitTx with the transaction it proves.
	Proof     *proof.VerificationRequest
	PublicKey []byte
	Address   string
	Balance   []*Utxo
	FeeRate   float64
	Network   *chaincfg.Params
}

// UnlockFromCommit reads the staking payload from a commit transaction and
// unlocks the output it points at.
func UnlockFromCommit(req *CommitUnlockRequest) (*Order, *payload.Payload, error) {
	commitTx := req.CommitTx
	if req.Proof != nil {
		tx, err := proof.Verify(req.Proof)
		if err != nil {
			return nil, nil, contracterrors.Prepend(err, "commit proof")
		}
		commitTx = tx
	}
	if commitTx == nil {
		return nil, nil, contracterrors.NewContractError(contracterrors.ErrInput, "missing commit transaction")
	}

	p, err := payload.Decipher(commitTx)
	if err != nil {
		return nil, nil, err
	}
	if int(p.Vout) >= len(commitTx.TxOut) {
		return nil, nil, contracterrors.NewContractError(
			contracterrors.ErrFieldRange,
			fmt.Sprintf("payload vout %d, tx has %d outputs", p.Vout, len(commitTx.TxOut)),
		)
	}
	lockedOut := commitTx.TxOut[p.Vout]

	order, err := BuildUnlock(&UnlockRequest{
		OrderID:   p.ID[:],
		LockTime:  p.LockTime,
		PublicKey: req.PublicKey,
		Address:   req.Address,
		Locked: &Utxo{
			TxId:     commitTx.TxHash().String(),
			Vout:     p.Vout,
			Amount:   lockedOut.Value,
			PkScript: lockedOut.PkScript,
		},
		Balance: req.Balance,
		FeeRate: req.FeeRate,
		Network: req.Network,
	})
	if err != nil {
		return nil, nil, err
	}
	return order, p, nil
}
