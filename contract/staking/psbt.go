package staking

import (
	"fmt"
	"math"

	"talos-staking/contract/commitreveal"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/protocol"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const psbtVersion = 2

// sender is the wallet side of a build: its x-only key and the script of
// its address.
type sender struct {
	xOnly    []byte
	pkScript []byte
}

func resolveSender(publicKey []byte, address string, network *chaincfg.Params) (*sender, error) {
	xOnly, err := commitreveal.XOnly(publicKey)
	if err != nil {
		return nil, err
	}
	pkScript, err := AddressScript(address, network)
	if err != nil {
		return nil, err
	}
	return &sender{xOnly: xOnly, pkScript: pkScript}, nil
}

// AddressScript decodes address and returns its output script. Addresses of
// other networks are rejected.
func AddressScript(address string, network *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, network)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidAddress, err, address)
	}
	if !addr.IsForNet(network) {
		return nil, contracterrors.NewContractError(contracterrors.ErrInvalidAddress, "address is for another network", address)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidAddress, err, address)
	}
	return script, nil
}

// commitDescriptor derives the commit output for an order.
func commitDescriptor(orderID []byte, lockTime uint32, xOnly []byte, network *chaincfg.Params) (*commitreveal.Descriptor, error) {
	return commitreveal.Build(byte(protocol.TagId), orderID, lockTime, xOnly, network)
}

func outPoint(utxo *Utxo) (*wire.OutPoint, error) {
	txHash, err := chainhash.NewHashFromStr(utxo.TxId)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "utxo txid")
	}
	return wire.NewOutPoint(txHash, utxo.Vout), nil
}

// newPacket creates an unsigned packet spending inputs with every input's
// witness utxo filled in. Taproot inputs get the sender's key as internal
// key so a wallet can sign them on the key path.
func newPacket(
	inputs []*Utxo,
	outputs []*wire.TxOut,
	lockTime uint32,
	sequence uint32,
	from *sender,
) (*psbt.Packet, error) {
	outPoints := make([]*wire.OutPoint, len(inputs))
	sequences := make([]uint32, len(inputs))
	for i, utxo := range inputs {
		op, err := outPoint(utxo)
		if err != nil {
			return nil, err
		}
		outPoints[i] = op
		sequences[i] = sequence
	}

	packet, err := psbt.New(outPoints, outputs, psbtVersion, lockTime, sequences)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "psbt")
	}
	for i, utxo := range inputs {
		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(utxo.Amount, utxo.PkScript)
		if txscript.IsPayToTaproot(utxo.PkScript) {
			packet.Inputs[i].TaprootInternalKey = from.xOnly
		}
	}
	return packet, nil
}

func checkFeeRate(feeRate float64) error {
	if !(feeRate > 0) || math.IsInf(feeRate, 0) {
		return contracterrors.NewContractError(contracterrors.ErrInput, fmt.Sprintf("fee rate %v must be a positive number", feeRate))
	}
	return nil
}

func checkUtxos(sets ...[]*Utxo) error {
	for _, set := range sets {
		for _, utxo := range set {
			if utxo.Amount <= 0 {
				return contracterrors.NewContractError(
					contracterrors.ErrInput,
					fmt.Sprintf("utxo %s:%d has value %d", utxo.TxId, utxo.Vout, utxo.Amount),
				)
			}
		}
	}
	return nil
}
