package main

import (
	"errors"
	"flag"
	"math"
	"testing"

	"talos-staking/contract/contracterrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"
)

func TestParseUtxo(t *testing.T) {
	txid := "7f0b4a8e0c3f1d2b9a6e5c4d3b2a1f0e9d8c7b6a5f4e3d2c1b0a9f8e7d6c5b4a"
	script := []byte{0x51, 0x20}

	utxo, err := parseUtxo(txid+":1:10000", script)
	require.NoError(t, err)
	assert.Equal(t, txid, utxo.TxId)
	assert.Equal(t, uint32(1), utxo.Vout)
	assert.Equal(t, int64(10000), utxo.Amount)
	assert.Equal(t, script, utxo.PkScript)
	assert.Empty(t, utxo.RuneID)

	utxo, err = parseUtxo(txid+":0:546:840000:3:1100", script)
	require.NoError(t, err)
	assert.Equal(t, "840000:3", utxo.RuneID)
	assert.Equal(t, "1100", utxo.RuneValue.Dec())

	for _, bad := range []string{txid, txid + ":x:1", txid + ":0:y", txid + ":0:546:a:3:1", txid + ":0:546:1:3:-1"} {
		_, err := parseUtxo(bad, script)
		assert.True(t, errors.Is(err, contracterrors.ErrInput), "%s: got %v", bad, err)
	}
}

func TestDecodeRawTx(t *testing.T) {
	_, err := decodeRawTx("zz")
	assert.True(t, errors.Is(err, contracterrors.ErrInvalidHex))

	_, err = decodeRawTx("0100")
	assert.True(t, errors.Is(err, contracterrors.ErrTransaction))
}

func TestFeeRateFlagIsPassedThrough(t *testing.T) {
	feeRate := func(args ...string) float64 {
		set := flag.NewFlagSet("order-btc", flag.ContinueOnError)
		feeRateFlag.Apply(set)
		require.NoError(t, set.Parse(args))
		e := &env{}
		return e.feeRate(cli.NewContext(nil, set, nil))
	}
	assert.Equal(t, 3.5, feeRate("--fee-rate", "3.5"))
	assert.True(t, math.IsNaN(feeRate("--fee-rate", "NaN")))
	assert.Equal(t, -2.0, feeRate("--fee-rate", "-2"))
}
