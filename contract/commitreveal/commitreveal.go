// Package commitreveal derives the taproot output that holds a staked
// position. The single script leaf is spendable by the staker once the
// lock height passes and carries the order id in an unexecuted envelope.
package commitreveal

import (
	"fmt"

	"talos-staking/contract/constants"
	"talos-staking/contract/contracterrors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

const OrderIDLength = 4

type Redeem struct {
	LeafScript   []byte
	LeafVersion  txscript.TapscriptLeafVersion
	ControlBlock []byte
}

// Descriptor is recomputed from its inputs whenever it is needed and is
// never stored.
type Descriptor struct {
	InternalKey []byte // x-only
	LeafScript  []byte
	LeafHash    []byte
	PkScript    []byte
	Address     btcutil.Address
	Redeem      Redeem
}

// LeafScript builds
// <lock_time> OP_CHECKLOCKTIMEVERIFY OP_DROP <signer> OP_CHECKSIG
// OP_0 OP_IF "wizz" <tag> <order_id> OP_ENDIF.
func LeafScript(tag byte, orderID []byte, lockTime uint32, signer []byte) ([]byte, error) {
	if len(orderID) != OrderIDLength {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrInvalidIdLength,
			fmt.Sprintf("order id is %d bytes, want %d", len(orderID), OrderIDLength),
		)
	}

	scriptBuilder := txscript.NewScriptBuilder()
	scriptBuilder.AddInt64(int64(lockTime))                 // Push lock height
	scriptBuilder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)    // OP_CHECKLOCKTIMEVERIFY
	scriptBuilder.AddOp(txscript.OP_DROP)                   // OP_DROP
	scriptBuilder.AddData(signer)                           // Push x-only pubkey
	scriptBuilder.AddOp(txscript.OP_CHECKSIG)               // OP_CHECKSIG
	scriptBuilder.AddOp(txscript.OP_0)                      // OP_0
	scriptBuilder.AddOp(txscript.OP_IF)                     // OP_IF
	scriptBuilder.AddData([]byte(constants.EnvelopeMarker)) // Push envelope marker
	scriptBuilder.AddData([]byte{tag})                      // Push tag
	scriptBuilder.AddData(orderID)                          // Push order id
	scriptBuilder.AddOp(txscript.OP_ENDIF)                  // OP_ENDIF

	return scriptBuilder.Script()
}

// Build derives the commit output for an order. The signer key is both the
// internal key and the key checked by the leaf, so the key path stays
// spendable by the same signer.
func Build(tag byte, orderID []byte, lockTime uint32, signer []byte, params *chaincfg.Params) (*Descriptor, error) {
	internalKey, err := schnorr.ParsePubKey(signer)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidPubKey, err, "signer")
	}

	script, err := LeafScript(tag, orderID, lockTime, signer)
	if err != nil {
		return nil, err
	}

	leaf := txscript.NewBaseTapLeaf(script)
	tree := txscript.AssembleTaprootScriptTree(leaf)
	rootHash := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, rootHash[:])

	address, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidAddress, err, "commit address")
	}
	pkScript, err := txscript.PayToAddrScript(address)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidAddress, err, "commit script")
	}

	controlBlock := tree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "control block")
	}

	leafHash := leaf.TapHash()
	return &Descriptor{
		InternalKey: schnorr.SerializePubKey(internalKey),
		LeafScript:  script,
		LeafHash:    leafHash[:],
		PkScript:    pkScript,
		Address:     address,
		Redeem: Redeem{
			LeafScript:   script,
			LeafVersion:  txscript.BaseLeafVersion,
			ControlBlock: controlBlockBytes,
		},
	}, nil
}

// XOnly accepts a 32-byte x-only key or a 33-byte compressed key and
// returns the x-only form.
func XOnly(pubKey []byte) ([]byte, error) {
	switch len(pubKey) {
	case 32:
		if _, err := schnorr.ParsePubKey(pubKey); err != nil {
			return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidPubKey, err)
		}
		return pubKey, nil
	case 33:
		key, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidPubKey, err)
		}
		return schnorr.SerializePubKey(key), nil
	}
	return nil, contracterrors.NewContractError(
		contracterrors.ErrInvalidPubKey,
		fmt.Sprintf("public key is %d bytes", len(pubKey)),
	)
}

// Disasm renders a script in one-line assembly form.
func Disasm(script []byte) string {
	asm, err := txscript.DisasmString(script)
	if err != nil {
		return asm + " [error: " + err.Error() + "]"
	}
	return asm
}
