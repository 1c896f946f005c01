package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"talos-staking/contract/contracterrors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"
)

const signedMessagePrefix = "Bitcoin Signed Message:\n"

// LocalProvider signs with an in-memory key. Its account is the BIP86
// taproot address of the key; inputs carrying a leaf script are signed on
// that script path instead.
type LocalProvider struct {
	key         *btcec.PrivateKey
	network     *chaincfg.Params
	address     *btcutil.AddressTaproot
	broadcaster Broadcaster
	log         *zap.SugaredLogger
}

func NewLocalProvider(
	key *btcec.PrivateKey,
	network *chaincfg.Params,
	broadcaster Broadcaster,
	log *zap.SugaredLogger,
) (*LocalProvider, error) {
	outputKey := txscript.ComputeTaprootKeyNoScript(key.PubKey())
	address, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), network)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidAddress, err, "local wallet")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LocalProvider{
		key:         key,
		network:     network,
		address:     address,
		broadcaster: broadcaster,
		log:         log,
	}, nil
}

// NewLocalProviderFromHex parses a 32-byte hex private key.
func NewLocalProviderFromHex(
	privateKeyHex string,
	network *chaincfg.Params,
	broadcaster Broadcaster,
	log *zap.SugaredLogger,
) (*LocalProvider, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "private key")
	}
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, fmt.Sprintf("private key is %d bytes", len(raw)))
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return NewLocalProvider(key, network, broadcaster, log)
}

func (p *LocalProvider) Kind() Kind {
	return KindLocal
}

func (p *LocalProvider) Address() string {
	return p.address.EncodeAddress()
}

// PkScript is the output script of the wallet address.
func (p *LocalProvider) PkScript() []byte {
	script, _ := txscript.PayToAddrScript(p.address)
	return script
}

func (p *LocalProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{p.Address()}, nil
}

func (p *LocalProvider) GetPublicKey(ctx context.Context) ([]byte, error) {
	return p.key.PubKey().SerializeCompressed(), nil
}

// SignMessage produces a base64 compact signature over the standard signed
// message digest.
func (p *LocalProvider) SignMessage(ctx context.Context, message string) (string, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarString(&buf, 0, signedMessagePrefix); err != nil {
		return "", err
	}
	if err := wire.WriteVarString(&buf, 0, message); err != nil {
		return "", err
	}
	hash := chainhash.DoubleHashB(buf.Bytes())
	sig := ecdsa.SignCompact(p.key, hash, true)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignPsbt signs every taproot input the key controls and finalizes it.
// Inputs with a leaf script get a tapscript signature for the first leaf;
// inputs paying the wallet address get a BIP86 key-path signature. Other
// inputs are left untouched.
func (p *LocalProvider) SignPsbt(ctx context.Context, packet *psbt.Packet) (*psbt.Packet, error) {
	tx := packet.UnsignedTx
	prevOuts := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range packet.Inputs {
		if in.WitnessUtxo == nil {
			return nil, contracterrors.NewContractError(contracterrors.ErrInput, fmt.Sprintf("input %d has no witness utxo", i))
		}
		prevOuts.AddPrevOut(tx.TxIn[i].PreviousOutPoint, in.WitnessUtxo)
	}
	sigHashes := txscript.NewTxSigHashes(tx, prevOuts)

	xOnly := schnorr.SerializePubKey(p.key.PubKey())
	walletScript := p.PkScript()
	signed := 0
	for i := range packet.Inputs {
		in := &packet.Inputs[i]
		utxo := in.WitnessUtxo
		if !txscript.IsPayToTaproot(utxo.PkScript) {
			continue
		}

		switch {
		case len(in.TaprootLeafScript) > 0:
			leafScript := in.TaprootLeafScript[0]
			leaf := txscript.NewTapLeaf(leafScript.LeafVersion, leafScript.Script)
			sig, err := txscript.RawTxInTapscriptSignature(
				tx, sigHashes, i, utxo.Value, utxo.PkScript, leaf, txscript.SigHashDefault, p.key,
			)
			if err != nil {
				return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, fmt.Sprintf("tapscript input %d", i))
			}
			leafHash := leaf.TapHash()
			in.TaprootScriptSpendSig = append(in.TaprootScriptSpendSig, &psbt.TaprootScriptSpendSig{
				XOnlyPubKey: xOnly,
				LeafHash:    leafHash[:],
				Signature:   sig,
				SigHash:     txscript.SigHashDefault,
			})

		case bytes.Equal(utxo.PkScript, walletScript):
			sig, err := txscript.RawTxInTaprootSignature(
				tx, sigHashes, i, utxo.Value, utxo.PkScript, []byte{}, txscript.SigHashDefault, p.key,
			)
			if err != nil {
				return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, fmt.Sprintf("key path input %d", i))
			}
			in.TaprootKeySpendSig = sig

		default:
			continue
		}

		if _, err := psbt.MaybeFinalize(packet, i); err != nil {
			return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, fmt.Sprintf("finalize input %d", i))
		}
		signed++
	}
	p.log.Debugf("signed %d of %d inputs", signed, len(packet.Inputs))
	return packet, nil
}

func (p *LocalProvider) PushTx(ctx context.Context, tx *wire.MsgTx) (string, error) {
	if p.broadcaster == nil {
		return "", contracterrors.NewContractError(contracterrors.ErrInput, "no broadcaster configured")
	}
	txid, err := p.broadcaster.Broadcast(ctx, tx)
	if err != nil {
		p.log.Warnf("broadcast of %s failed: %s", tx.TxHash(), err)
		return "", err
	}
	p.log.Infof("broadcast %s", txid)
	return txid, nil
}

// SignAndExtract signs packet and returns the final transaction.
func SignAndExtract(ctx context.Context, provider Provider, packet *psbt.Packet) (*wire.MsgTx, error) {
	signed, err := provider.SignPsbt(ctx, packet)
	if err != nil {
		return nil, err
	}
	tx, err := psbt.Extract(signed)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "extract")
	}
	return tx, nil
}
