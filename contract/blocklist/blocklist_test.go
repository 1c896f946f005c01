package blocklist_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"talos-staking/contract/blocklist"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/proof"
	"talos-staking/contract/store"

	"github.com/CosmWasm/tinyjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newList(t *testing.T) *blocklist.BlockList {
	db, err := store.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return blocklist.New(db, nil)
}

func headerHex(t *testing.T, h *wire.BlockHeader) string {
	var buf bytes.Buffer
	require.NoError(t, h.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

// chain returns n linked headers; header i commits to root i when given.
func chain(n int, roots map[int]chainhash.Hash) []*wire.BlockHeader {
	headers := make([]*wire.BlockHeader, n)
	prev := chainhash.Hash{}
	for i := range headers {
		root := roots[i]
		headers[i] = wire.NewBlockHeader(1, &prev, &root, 0x1d00ffff, uint32(i))
		prev = headers[i].BlockHash()
	}
	return headers
}

func toBytes(t *testing.T, headers ...*wire.BlockHeader) []blocklist.BlockHeaderBytes {
	var all string
	for _, h := range headers {
		all += headerHex(t, h)
	}
	out, err := blocklist.DivideHeaderList(all)
	require.NoError(t, err)
	return out
}

func TestSeedAndAdd(t *testing.T) {
	bl := newList(t)
	headers := chain(4, nil)

	_, err := bl.AddHeaders(toBytes(t, headers[1]))
	assert.Error(t, err)

	require.NoError(t, bl.Seed(&blocklist.BlockSeedInput{BlockHeader: headerHex(t, headers[0]), BlockHeight: 100}))
	err = bl.Seed(&blocklist.BlockSeedInput{BlockHeader: headerHex(t, headers[0]), BlockHeight: 100})
	assert.True(t, errors.Is(err, contracterrors.ErrInput))

	out, err := bl.AddHeaders(toBytes(t, headers[1], headers[2]))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, uint32(102), out.LastBlockHeight)

	stored, err := bl.Header(101)
	require.NoError(t, err)
	assert.Equal(t, headers[1].BlockHash(), stored.BlockHash())

	data, err := bl.Data()
	require.NoError(t, err)
	assert.Equal(t, uint32(102), data.LastHeight)
	assert.True(t, data.Seeded)
}

func TestAddKeepsLinkedPrefix(t *testing.T) {
	bl := newList(t)
	headers := chain(3, nil)
	stray := wire.NewBlockHeader(1, &chainhash.Hash{0x42}, &chainhash.Hash{}, 0x1d00ffff, 9)

	require.NoError(t, bl.Seed(&blocklist.BlockSeedInput{BlockHeader: headerHex(t, headers[0]), BlockHeight: 10}))
	out, err := bl.AddHeaders(toBytes(t, headers[1], stray, headers[2]))
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "block sequence incorrect")
	assert.Equal(t, uint32(11), out.LastBlockHeight)

	raw, err := tinyjson.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"LastBlockHeight":11`)
}

func TestDivideHeaderList(t *testing.T) {
	_, err := blocklist.DivideHeaderList("00ff")
	assert.True(t, errors.Is(err, contracterrors.ErrInput))
	_, err = blocklist.DivideHeaderList("zz")
	assert.True(t, errors.Is(err, contracterrors.ErrInvalidHex))
}

func TestVerifyProof(t *testing.T) {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x51}))
	var txBuf bytes.Buffer
	require.NoError(t, tx.Serialize(&txBuf))

	headers := chain(2, map[int]chainhash.Hash{1: tx.TxHash()})
	bl := newList(t)
	require.NoError(t, bl.Seed(&blocklist.BlockSeedInput{BlockHeader: headerHex(t, headers[0]), BlockHeight: 500}))
	_, err := bl.AddHeaders(toBytes(t, headers[1]))
	require.NoError(t, err)

	req := &proof.VerificationRequest{
		BlockHeight:  501,
		RawHeaderHex: headerHex(t, headers[1]),
		RawTxHex:     hex.EncodeToString(txBuf.Bytes()),
	}
	got, err := bl.VerifyProof(req)
	require.NoError(t, err)
	assert.Equal(t, tx.TxHash(), got.TxHash())

	req.BlockHeight = 500
	_, err = bl.VerifyProof(req)
	assert.True(t, errors.Is(err, contracterrors.ErrTransaction), "got %v", err)

	req.BlockHeight = 900
	_, err = bl.VerifyProof(req)
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound), "got %v", err)
}

func TestInputJSON(t *testing.T) {
	var seed blocklist.BlockSeedInput
	require.NoError(t, tinyjson.Unmarshal([]byte(`{"BlockHeader":"00","BlockHeight":7,"Extra":[1]}`), &seed))
	assert.Equal(t, uint32(7), seed.BlockHeight)

	var add blocklist.AddBlocksInput
	require.NoError(t, tinyjson.Unmarshal([]byte(`{"Blocks":"abcd"}`), &add))
	assert.Equal(t, "abcd", add.Blocks)
}
