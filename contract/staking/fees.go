package staking

import "math"

// virtual sizes in vbytes
const (
	txOverheadVsize     = 10.5
	taprootInputVsize   = 57.5
	taprootOutputVsize  = 43
	spendOutputVsize    = 31
	commitFundingVsize  = txOverheadVsize + 68 + 43 + 83 + 9
	revealVsize         = txOverheadVsize + 76.5 + 43
	outputOverheadVsize = 9 // value + script length
	controlBlockSize    = 33
)

func feeFor(feeRate float64, vsize float64) int64 {
	return int64(math.Ceil(feeRate * vsize))
}

// CommitFee is reserved in the commit output to fund the staking-side
// commit transaction.
func CommitFee(feeRate float64) int64 {
	return feeFor(feeRate, commitFundingVsize)
}

// RevealFee is the estimated cost of spending the commit output.
func RevealFee(feeRate float64) int64 {
	return feeFor(feeRate, revealVsize)
}

// SpendFee is the fee of a wallet spend with numInputs taproot inputs, one
// payment output and an optional change output. extraVsize covers outputs
// beyond those two.
func SpendFee(feeRate float64, numInputs int, hasChange bool, extraVsize float64) int64 {
	vsize := txOverheadVsize + taprootInputVsize*float64(numInputs) + spendOutputVsize + extraVsize
	if hasChange {
		vsize += taprootOutputVsize
	}
	return feeFor(feeRate, vsize)
}

func outputVsize(pkScript []byte) float64 {
	return outputOverheadVsize + float64(len(pkScript))
}

// lockedInputVsize is a script-path spend of the commit leaf: outpoint,
// sequence and empty script sig, plus a witness of signature, leaf script
// and control block.
func lockedInputVsize(leafLen int) float64 {
	witness := 1 + 65 + 1 + leafLen + 1 + controlBlockSize + 1
	return 41 + float64(witness)/4
}

// UnlockFee prices a reveal spending the locked output, numRegular wallet
// inputs and numOutputs taproot outputs.
func UnlockFee(feeRate float64, numRegular int, numOutputs int, leafLen int) int64 {
	vsize := txOverheadVsize + lockedInputVsize(leafLen) +
		taprootInputVsize*float64(numRegular) + taprootOutputVsize*float64(numOutputs)
	return feeFor(feeRate, vsize)
}
