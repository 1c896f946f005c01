package api

import (
	"bytes"
	"encoding/hex"
	"strings"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/payload"
	"talos-staking/contract/proof"
	"talos-staking/contract/staking"

	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"
)

type utxoRequest struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Value     int64  `json:"value"`
	PkScript  string `json:"pk_script"` // hex; defaults to the sender address script
	RuneID    string `json:"rune_id"`
	RuneValue string `json:"rune_value"` // decimal
}

type btcOrderRequest struct {
	OrderID      string        `json:"order_id"` // existing ledger order; empty creates one
	Address      string        `json:"address"`
	PublicKey    string        `json:"public_key"` // defaults to the registered key
	LockTime     uint32        `json:"lock_time"`
	Stake        int64         `json:"stake"`
	FeeRate      float64       `json:"fee_rate"` // defaults to the half-hour preset
	Utxos        []utxoRequest `json:"utxos"`
	EmbedPayload bool          `json:"embed_payload"`
}

type runesOrderRequest struct {
	OrderID      string        `json:"order_id"`
	Address      string        `json:"address"`
	PublicKey    string        `json:"public_key"`
	RuneID       string        `json:"rune_id"`
	LockTime     uint32        `json:"lock_time"`
	Stake        string        `json:"stake"` // decimal
	FeeRate      float64       `json:"fee_rate"`
	RuneUtxos    []utxoRequest `json:"rune_utxos"`
	Utxos        []utxoRequest `json:"utxos"`
	EmbedPayload bool          `json:"embed_payload"`
}

type unlockRequest struct {
	Address   string  `json:"address"`
	PublicKey string  `json:"public_key"`
	FeeRate   float64 `json:"fee_rate"`
	// one of: a raw commit transaction, an inclusion proof of one, or a
	// ledger order with its locked output
	CommitTx string                     `json:"commit_tx"`
	Proof    *proof.VerificationRequest `json:"proof"`
	OrderID  string                     `json:"order_id"`
	Locked   *utxoRequest               `json:"locked"`
	Utxos    []utxoRequest              `json:"utxos"`
}

type statusRequest struct {
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	CommitTxID string `json:"commit_txid"`
}

type decodeRequest struct {
	Tx     string `json:"tx"`     // raw transaction hex
	Script string `json:"script"` // output script hex
}

type broadcastRequest struct {
	Tx string `json:"tx"`
}

type userRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

type runeRequest struct {
	RuneID   string `json:"rune_id"`
	Status   string `json:"status"`
	MinStake string `json:"min_stake"`
}

type runeStatusRequest struct {
	Status string `json:"status"`
}

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return contracterrors.NewContractError(contracterrors.ErrInput, contracterrors.MsgBadInput)
	}
	return nil
}

func decodeHex(s string, what string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, what)
	}
	return raw, nil
}

func parseDecimal(s string, what string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInput, err, what)
	}
	return v, nil
}

func decodeTx(s string) (*wire.MsgTx, error) {
	raw, err := decodeHex(s, "transaction")
	if err != nil {
		return nil, err
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "transaction")
	}
	return tx, nil
}

func (s *Server) addressScript(address string) ([]byte, error) {
	return staking.AddressScript(address, s.network)
}

func toUtxo(req *utxoRequest, defaultScript []byte) (*staking.Utxo, error) {
	utxo := &staking.Utxo{
		TxId:     req.TxID,
		Vout:     req.Vout,
		Amount:   req.Value,
		PkScript: defaultScript,
		RuneID:   req.RuneID,
	}
	if req.PkScript != "" {
		script, err := decodeHex(req.PkScript, "pk_script")
		if err != nil {
			return nil, err
		}
		utxo.PkScript = script
	}
	if req.RuneValue != "" {
		v, err := parseDecimal(req.RuneValue, "rune_value")
		if err != nil {
			return nil, err
		}
		utxo.RuneValue = *v
	}
	return utxo, nil
}

func toUtxos(reqs []utxoRequest, defaultScript []byte) ([]*staking.Utxo, error) {
	out := make([]*staking.Utxo, 0, len(reqs))
	for i := range reqs {
		utxo, err := toUtxo(&reqs[i], defaultScript)
		if err != nil {
			return nil, err
		}
		out = append(out, utxo)
	}
	return out, nil
}

func parseOrderID(s string) ([4]byte, error) {
	return payload.ParseID(s)
}
