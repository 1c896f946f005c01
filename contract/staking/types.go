package staking

import (
	"talos-staking/contract/commitreveal"
	"talos-staking/contract/payload"
	"talos-staking/contract/runestone"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
)

type Utxo struct {
	TxId      string // tx containing the output
	Vout      uint32
	Amount    int64
	PkScript  []byte
	RuneID    string      // set on outputs holding runes
	RuneValue uint256.Int // rune balance of the output
}

// Order is an unsigned proposal. Builders return a fresh one for every call.
type Order struct {
	Inputs     []*Utxo
	Outputs    []*wire.TxOut
	Fee        int64 // sum(inputs) - sum(outputs)
	Packet     *psbt.Packet
	Descriptor *commitreveal.Descriptor
}

// BTCOrder carries the fee breakdown shown for a BTC stake.
type BTCOrder struct {
	Order
	CommitFee    int64
	RevealFee    int64
	CommitAmount int64
	StakeAmount  int64
	TotalFee     int64
}

// OrderRequest holds what every commit needs: the leaf parameters and the
// sender's wallet.
type OrderRequest struct {
	OrderID   []byte
	LockTime  uint32
	PublicKey []byte // x-only or compressed
	Address   string // sender and change address
	FeeRate   float64
	Network   *chaincfg.Params
	// Payload, when set, is embedded as an OP_RETURN output right after the
	// commit output.
	Payload *payload.Payload
}

type BTCOrderRequest struct {
	OrderRequest
	Balance []*Utxo
	Stake   int64
}

type RunesOrderRequest struct {
	OrderRequest
	RuneID    runestone.RuneID
	RuneUtxos []*Utxo
	Balance   []*Utxo // plain BTC outputs used for fees
	Stake     uint256.Int
}

type UnlockRequest struct {
	OrderID   []byte
	LockTime  uint32
	PublicKey []byte
	Address   string // receives the dust output and change
	Locked    *Utxo  // the commit output
	Balance   []*Utxo
	FeeRate   float64
	Network   *chaincfg.Params
}

func sumAmounts(utxos []*Utxo) int64 {
	total := int64(0)
	for _, utxo := range utxos {
		total += utxo.Amount
	}
	return total
}

func sumOutputs(outputs []*wire.TxOut) int64 {
	total := int64(0)
	for _, out := range outputs {
		total += out.Value
	}
	return total
}
