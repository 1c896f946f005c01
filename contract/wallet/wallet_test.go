package wallet_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/wallet"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "a9f4639b99f21599e3cc529567848119c7c6939e00bdb90b7c9c2d5974f3abea"

func newLocal(t *testing.T, b wallet.Broadcaster) *wallet.LocalProvider {
	p, err := wallet.NewLocalProviderFromHex(testPrivateKey, &chaincfg.TestNet3Params, b, nil)
	require.NoError(t, err)
	return p
}

func TestKinds(t *testing.T) {
	for _, name := range []string{"wizz", "unisat", "atom", "okx-testnet", "okx-mainnet", "local"} {
		kind, err := wallet.ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, kind.String())
	}
	_, err := wallet.ParseKind("metamask")
	assert.True(t, errors.Is(err, contracterrors.ErrInput))
}

func TestRegistry(t *testing.T) {
	r := wallet.NewRegistry()
	_, err := r.Get(wallet.KindLocal)
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound))

	local := newLocal(t, nil)
	r.Register(local)
	got, err := r.Get(wallet.KindLocal)
	require.NoError(t, err)
	accounts, err := got.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{local.Address()}, accounts)
}

func TestSignMessage(t *testing.T) {
	p := newLocal(t, nil)
	sigB64, err := p.SignMessage(context.Background(), "hello talos")
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	// digest of varstr(prefix) || varstr(message)
	msg := append([]byte{24}, []byte("Bitcoin Signed Message:\n")...)
	msg = append(msg, byte(len("hello talos")))
	msg = append(msg, []byte("hello talos")...)
	pub, compressed, err := ecdsa.RecoverCompact(sig, chainhash.DoubleHashB(msg))
	require.NoError(t, err)
	assert.True(t, compressed)

	expected, err := p.GetPublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, pub.SerializeCompressed())
}

func TestSignPsbtKeyPath(t *testing.T) {
	p := newLocal(t, nil)
	walletScript := p.PkScript()

	prevHash := chainhash.Hash{0x01}
	packet, err := psbt.New(
		[]*wire.OutPoint{wire.NewOutPoint(&prevHash, 0), wire.NewOutPoint(&prevHash, 1)},
		[]*wire.TxOut{wire.NewTxOut(15000, walletScript)},
		2, 0, []uint32{wire.MaxTxInSequenceNum, wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)
	packet.Inputs[0].WitnessUtxo = wire.NewTxOut(10000, walletScript)
	packet.Inputs[1].WitnessUtxo = wire.NewTxOut(6000, walletScript)

	tx, err := wallet.SignAndExtract(context.Background(), p, packet)
	require.NoError(t, err)

	prevOuts := txscript.NewMultiPrevOutFetcher(map[wire.OutPoint]*wire.TxOut{
		*wire.NewOutPoint(&prevHash, 0): wire.NewTxOut(10000, walletScript),
		*wire.NewOutPoint(&prevHash, 1): wire.NewTxOut(6000, walletScript),
	})
	sigHashes := txscript.NewTxSigHashes(tx, prevOuts)
	for i := range tx.TxIn {
		prev := prevOuts.FetchPrevOutput(tx.TxIn[i].PreviousOutPoint)
		vm, err := txscript.NewEngine(prev.PkScript, tx, i, txscript.StandardVerifyFlags, nil, sigHashes, prev.Value, prevOuts)
		require.NoError(t, err)
		assert.NoError(t, vm.Execute(), "input %d", i)
	}
}

func TestSignPsbtSkipsForeignInputs(t *testing.T) {
	p := newLocal(t, nil)
	foreign := append([]byte{txscript.OP_1, txscript.OP_DATA_32}, make([]byte, 32)...)
	foreign[10] = 0x42

	prevHash := chainhash.Hash{0x02}
	packet, err := psbt.New(
		[]*wire.OutPoint{wire.NewOutPoint(&prevHash, 0)},
		[]*wire.TxOut{wire.NewTxOut(500, p.PkScript())},
		2, 0, []uint32{wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)
	packet.Inputs[0].WitnessUtxo = wire.NewTxOut(1000, foreign)

	_, err = p.SignPsbt(context.Background(), packet)
	require.NoError(t, err)
	assert.Nil(t, packet.Inputs[0].FinalScriptWitness)
	assert.False(t, packet.IsComplete())
}

func TestMempoolBroadcaster(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tx", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		if got == "" {
			http.Error(w, "empty", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("abcd\n"))
	}))
	defer srv.Close()

	b := wallet.NewMempoolBroadcaster(srv.URL+"/api/", time.Second)
	tx := wire.NewMsgTx(2)
	tx.AddTxOut(wire.NewTxOut(1, []byte{txscript.OP_TRUE}))

	p := newLocal(t, b)
	txid, err := p.PushTx(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, "abcd", txid)
	assert.NotEmpty(t, got)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad-txns-inputs-missingorspent", http.StatusBadRequest)
	}))
	defer failing.Close()
	_, err = wallet.NewMempoolBroadcaster(failing.URL, time.Second).Broadcast(context.Background(), tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missingorspent")

	_, err = newLocal(t, nil).PushTx(context.Background(), tx)
	assert.Error(t, err)
}
