// Package blocklist keeps a chain of bitcoin block headers so commit
// inclusion proofs can be checked against known blocks.
package blocklist

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/proof"
	"talos-staking/contract/store"

	"github.com/CosmWasm/tinyjson"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"
)

type BlockHeaderBytes [wire.MaxBlockHeaderPayload]byte

type BlockData struct {
	Seeded     bool
	LastHeight uint32
}

type AddBlocksInput struct {
	Blocks string // concatenated hex headers
}

type AddBlockOutput struct {
	Success         bool
	Error           string
	LastBlockHeight uint32
}

type BlockSeedInput struct {
	BlockHeader string
	BlockHeight uint32
}

var (
	blockDataKey = []byte("blocklist")
	headerPrefix = []byte("h/")
)

func headerKey(height uint32) []byte {
	key := append([]byte(nil), headerPrefix...)
	return binary.BigEndian.AppendUint32(key, height)
}

type BlockList struct {
	db  *store.LevelDB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

func New(db *store.LevelDB, log *zap.SugaredLogger) *BlockList {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &BlockList{db: db, log: log}
}

// Data returns the chain summary; an unseeded list has the zero value.
func (bl *BlockList) Data() (*BlockData, error) {
	var blockData BlockData
	raw, err := bl.db.Get(blockDataKey)
	if bl.db.IsNotFound(err) {
		return &blockData, nil
	}
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "block data")
	}
	if err := tinyjson.Unmarshal(raw, &blockData); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrJson, err, "block data")
	}
	return &blockData, nil
}

func DivideHeaderList(blocksHex string) ([]BlockHeaderBytes, error) {
	blockBytes, err := hex.DecodeString(strings.TrimSpace(blocksHex))
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "block headers")
	}
	if len(blockBytes)%wire.MaxBlockHeaderPayload != 0 {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "incorrect block length")
	}

	blockHeaders := make([]BlockHeaderBytes, len(blockBytes)/wire.MaxBlockHeaderPayload)
	for i := 0; i < len(blockBytes); i += wire.MaxBlockHeaderPayload {
		blockHeaders[i/wire.MaxBlockHeaderPayload] = BlockHeaderBytes(blockBytes[i : i+wire.MaxBlockHeaderPayload])
	}
	return blockHeaders, nil
}

// Seed stores the first known header. It fails once the list is seeded.
func (bl *BlockList) Seed(input *BlockSeedInput) error {
	headers, err := DivideHeaderList(input.BlockHeader)
	if err != nil {
		return err
	}
	if len(headers) != 1 {
		return contracterrors.NewContractError(contracterrors.ErrInput, "seed takes exactly one header")
	}

	bl.mu.Lock()
	defer bl.mu.Unlock()
	blockData, err := bl.Data()
	if err != nil {
		return err
	}
	if blockData.Seeded {
		return contracterrors.NewContractError(
			contracterrors.ErrInput,
			fmt.Sprintf("block data already seeded, last height: %d", blockData.LastHeight),
		)
	}

	batch := bl.db.NewBatch()
	batch.Put(headerKey(input.BlockHeight), headers[0][:])
	blockData.Seeded = true
	blockData.LastHeight = input.BlockHeight
	if err := bl.save(batch, blockData); err != nil {
		return err
	}
	bl.log.Infow("header chain seeded", "height", input.BlockHeight)
	return nil
}

// AddHeaders appends headers that extend the chain tip in order. Headers
// before the first one that does not link are kept.
func (bl *BlockList) AddHeaders(rawHeaders []BlockHeaderBytes) (*AddBlockOutput, error) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	blockData, err := bl.Data()
	if err != nil {
		return nil, err
	}
	if !blockData.Seeded {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "block data not seeded")
	}
	lastBlockHeader, err := bl.header(blockData.LastHeight)
	if err != nil {
		return nil, err
	}

	batch := bl.db.NewBatch()
	var addErr error
	for _, headerBytes := range rawHeaders {
		var blockHeader wire.BlockHeader
		if err := blockHeader.Deserialize(bytes.NewReader(headerBytes[:])); err != nil {
			addErr = contracterrors.WrapContractError(contracterrors.ErrInput, err, "block header")
			break
		}
		lastBlockHash := lastBlockHeader.BlockHash()
		if !blockHeader.PrevBlock.IsEqual(&lastBlockHash) {
			addErr = contracterrors.NewContractError(
				contracterrors.ErrInput,
				fmt.Sprintf("block sequence incorrect at height %d", blockData.LastHeight+1),
			)
			break
		}
		blockData.LastHeight++
		batch.Put(headerKey(blockData.LastHeight), headerBytes[:])
		lastBlockHeader = &blockHeader
	}
	// keep the headers that linked even when a later one did not
	if err := bl.save(batch, blockData); err != nil {
		return nil, err
	}

	out := &AddBlockOutput{LastBlockHeight: blockData.LastHeight, Success: addErr == nil}
	if addErr != nil {
		out.Error = addErr.Error()
	}
	bl.log.Debugw("headers added", "last_height", blockData.LastHeight, "success", out.Success)
	return out, nil
}

func (bl *BlockList) save(batch *store.Batch, blockData *BlockData) error {
	raw, err := tinyjson.Marshal(blockData)
	if err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrJson, err, "block data")
	}
	batch.Put(blockDataKey, raw)
	if err := batch.Write(); err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "block data")
	}
	return nil
}

func (bl *BlockList) header(height uint32) (*wire.BlockHeader, error) {
	raw, err := bl.db.Get(headerKey(height))
	if bl.db.IsNotFound(err) {
		return nil, contracterrors.NewContractError(contracterrors.ErrNotFound, fmt.Sprintf("header at height %d", height))
	}
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "header")
	}
	var blockHeader wire.BlockHeader
	if err := blockHeader.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "header")
	}
	return &blockHeader, nil
}

func (bl *BlockList) Header(height uint32) (*wire.BlockHeader, error) {
	return bl.header(height)
}

// VerifyProof checks that the proof's header is the known header at its
// height and then verifies the proof itself.
func (bl *BlockList) VerifyProof(req *proof.VerificationRequest) (*wire.MsgTx, error) {
	known, err := bl.header(req.BlockHeight)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := known.Serialize(&buf); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "header")
	}
	if !strings.EqualFold(hex.EncodeToString(buf.Bytes()), req.RawHeaderHex) {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrTransaction,
			fmt.Sprintf("header does not match block %d", req.BlockHeight),
		)
	}
	return proof.Verify(req)
}
