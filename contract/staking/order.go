package staking

import (
	"fmt"

	"talos-staking/contract/constants"
	"talos-staking/contract/contracterrors"

	"github.com/btcsuite/btcd/wire"
)

// BuildBTCOrder funds the commit output of a BTC stake. The commit output
// holds the stake plus the commit funding fee; the wallet pays the spend
// fee and keeps any change that is not dust.
func BuildBTCOrder(req *BTCOrderRequest) (*BTCOrder, error) {
	if req.Stake <= 0 {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "stake must be positive")
	}
	if err := checkFeeRate(req.FeeRate); err != nil {
		return nil, err
	}
	if err := checkUtxos(req.Balance); err != nil {
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

	var payloadOut *wire.TxOut
	extraVsize := 0.0
	if req.Payload != nil {
		payloadOut, err = req.Payload.TxOut()
		if err != nil {
			return nil, err
		}
		extraVsize = outputVsize(payloadOut.PkScript)
	}

	commitFee := CommitFee(req.FeeRate)
	revealFee := RevealFee(req.FeeRate)
	outputNeed := req.Stake + commitFee

	var (
		inputs       []*Utxo
		fee          int64
		commitAmount int64
		change       int64
	)
	balance := sumAmounts(req.Balance)
	if req.Stake == balance {
		// staking the whole wallet: everything goes to the commit output
		inputs = append([]*Utxo(nil), req.Balance...)
		fee = SpendFee(req.FeeRate, len(inputs), false, extraVsize)
		commitAmount = balance - fee
		if commitAmount < constants.DustAmount {
			return nil, contracterrors.NewContractError(
				contracterrors.ErrBalance,
				fmt.Sprintf("balance %d leaves %d after fee %d", balance, commitAmount, fee),
			)
		}
	} else {
		commitAmount = outputNeed
		inputValue := int64(0)
		ok := false
		for _, utxo := range req.Balance {
			inputs = append(inputs, utxo)
			inputValue += utxo.Amount
			fee = SpendFee(req.FeeRate, len(inputs), false, extraVsize)
			r := inputValue - outputNeed - fee
			if r < 0 {
				continue
			}
			if r > constants.DustAmount {
				fee = SpendFee(req.FeeRate, len(inputs), true, extraVsize)
				if c := inputValue - outputNeed - fee; c >= constants.DustAmount {
					change = c
				}
			}
			ok = true
			break
		}
		if !ok {
			return nil, contracterrors.NewContractError(
				contracterrors.ErrBalance,
				fmt.Sprintf("need %d plus fees, wallet holds %d", outputNeed, balance),
			)
		}
	}

	stakeAmount := commitAmount - commitFee
	if stakeAmount-revealFee < constants.DustAmount {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrBelowDust,
			fmt.Sprintf("stake %d minus reveal fee %d is below dust", stakeAmount, revealFee),
		)
	}

	outputs := []*wire.TxOut{wire.NewTxOut(commitAmount, descriptor.PkScript)}
	if payloadOut != nil {
		outputs = append(outputs, payloadOut)
	}
	if change > 0 {
		outputs = append(outputs, wire.NewTxOut(change, from.pkScript))
	}

	packet, err := newPacket(inputs, outputs, 0, wire.MaxTxInSequenceNum, from)
	if err != nil {
		return nil, err
	}

	realizedFee := sumAmounts(inputs) - sumOutputs(outputs)
	return &BTCOrder{
		Order: Order{
			Inputs:     inputs,
			Outputs:    outputs,
			Fee:        realizedFee,
			Packet:     packet,
			Descriptor: descriptor,
		},
		CommitFee:    commitFee,
		RevealFee:    revealFee,
		CommitAmount: commitAmount,
		StakeAmount:  stakeAmount,
		TotalFee:     realizedFee + commitFee,
	}, nil
}
