// Package proof checks that a commit transaction is included in a block by
// folding its merkle branch up to the header's merkle root.
package proof

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"talos-staking/contract/contracterrors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

type VerificationRequest struct {
	BlockHeight    uint32
	RawHeaderHex   string // 80-byte block header
	RawTxHex       string
	MerkleProofHex string // concatenated 32-byte sibling hashes, leaf to root
	TxIndex        uint32 // position of the tx in the block
}

// Verify decodes the transaction and checks its inclusion proof against the
// header. It returns the decoded transaction on success.
func Verify(req *VerificationRequest) (*wire.MsgTx, error) {
	rawHeaderBytes, err := hex.DecodeString(req.RawHeaderHex)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "block header")
	}
	if len(rawHeaderBytes) != wire.MaxBlockHeaderPayload {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrInput,
			fmt.Sprintf("block header is %d bytes", len(rawHeaderBytes)),
		)
	}
	var blockHeader wire.BlockHeader
	if err := blockHeader.Deserialize(bytes.NewReader(rawHeaderBytes)); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInput, err, "block header")
	}

	rawTxBytes, err := hex.DecodeString(req.RawTxHex)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "raw tx")
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(rawTxBytes)); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "raw tx")
	}

	merkleProof, err := merkleProofFromHex(req.MerkleProofHex)
	if err != nil {
		return nil, err
	}

	if !VerifyMerkleProof(tx.TxHash(), req.TxIndex, merkleProof, blockHeader.MerkleRoot) {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrTransaction,
			"transaction cannot be validated, failed to reconstruct proof",
		)
	}
	return tx, nil
}

func merkleProofFromHex(proofHex string) ([]chainhash.Hash, error) {
	proofBytes, err := hex.DecodeString(proofHex)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "merkle proof")
	}
	if len(proofBytes)%chainhash.HashSize != 0 {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "invalid proof format")
	}
	proof := make([]chainhash.Hash, len(proofBytes)/chainhash.HashSize)
	for i := 0; i < len(proofBytes); i += chainhash.HashSize {
		proof[i/chainhash.HashSize] = chainhash.Hash(proofBytes[i : i+chainhash.HashSize])
	}
	return proof, nil
}

// VerifyMerkleProof folds proof onto txHash, taking the index parity at each
// level to decide which side the sibling sits on.
func VerifyMerkleProof(
	txHash chainhash.Hash,
	txIndex uint32,
	proof []chainhash.Hash,
	merkleRoot chainhash.Hash,
) bool {
	// index bits above the tree height would be ignored by the fold
	if uint64(txIndex)>>uint(len(proof)) != 0 {
		return false
	}
	currentHash := txHash
	index := txIndex

	for _, siblingHash := range proof {
		var combined [chainhash.HashSize * 2]byte
		if index%2 == 0 {
			copy(combined[:chainhash.HashSize], currentHash[:])
			copy(combined[chainhash.HashSize:], siblingHash[:])
		} else {
			copy(combined[:chainhash.HashSize], siblingHash[:])
			copy(combined[chainhash.HashSize:], currentHash[:])
		}

		currentHash = chainhash.DoubleHashH(combined[:])
		index = index / 2
	}

	return currentHash.IsEqual(&merkleRoot)
}
