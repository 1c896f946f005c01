package api

import (
	"net/http"

	"talos-staking/contract/commitreveal"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/payload"
	"talos-staking/contract/staking"

	"github.com/labstack/echo/v4"
)

type unlockResponse struct {
	Payload    *payload.Payload `json:"payload"`
	Psbt       string           `json:"psbt"` // base64
	Fee        int64            `json:"fee"`
	Inputs     int              `json:"inputs"`
	Outputs    int              `json:"outputs"`
	LeafScript string           `json:"leaf_script"`
}

func (s *Server) unlock(c echo.Context) error {
	var req unlockRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	publicKey, err := s.senderKey(req.PublicKey, req.Address)
	if err != nil {
		return err
	}
	senderScript, err := s.addressScript(req.Address)
	if err != nil {
		return err
	}
	balance, err := toUtxos(req.Utxos, senderScript)
	if err != nil {
		return err
	}
	feeRate := s.feeRate(req.FeeRate)

	var (
		order *staking.Order
		p     *payload.Payload
	)
	switch {
	case req.CommitTx != "" || req.Proof != nil:
		commitReq := &staking.CommitUnlockRequest{
			PublicKey: publicKey,
			Address:   req.Address,
			Balance:   balance,
			FeeRate:   feeRate,
			Network:   s.network,
		}
		if req.Proof != nil {
			if err := s.resolveProof(&req, commitReq); err != nil {
				return err
			}
		} else if commitReq.CommitTx, err = decodeTx(req.CommitTx); err != nil {
			return err
		}
		order, p, err = staking.UnlockFromCommit(commitReq)

	case req.OrderID != "" && req.Locked != nil:
		order, p, err = s.unlockOrder(&req, publicKey, balance, feeRate)

	default:
		return contracterrors.NewContractError(
			contracterrors.ErrInput,
			"need commit_tx, proof, or order_id with locked",
		)
	}
	if err != nil {
		return err
	}

	b64, err := order.Packet.B64Encode()
	if err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "encode psbt")
	}
	return c.JSON(http.StatusOK, &unlockResponse{
		Payload:    p,
		Psbt:       b64,
		Fee:        order.Fee,
		Inputs:     len(order.Inputs),
		Outputs:    len(order.Outputs),
		LeafScript: commitreveal.Disasm(order.Descriptor.LeafScript),
	})
}

// resolveProof checks the proof against the stored headers when the chain
// has been seeded; otherwise the proof is checked on its own.
func (s *Server) resolveProof(req *unlockRequest, commitReq *staking.CommitUnlockRequest) error {
	if s.blocks != nil {
		data, err := s.blocks.Data()
		if err != nil {
			return err
		}
		if data.Seeded {
			tx, err := s.blocks.VerifyProof(req.Proof)
			if err != nil {
				return contracterrors.Prepend(err, "commit proof")
			}
			commitReq.CommitTx = tx
			return nil
		}
	}
	commitReq.Proof = req.Proof
	return nil
}

func (s *Server) unlockOrder(req *unlockRequest, publicKey []byte, balance []*staking.Utxo, feeRate float64) (*staking.Order, *payload.Payload, error) {
	id, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.ledger.Order(id)
	if err != nil {
		return nil, nil, err
	}
	if record.Address != req.Address {
		return nil, nil, contracterrors.NewContractError(contracterrors.ErrInput, "order belongs to another address")
	}
	locked, err := toUtxo(req.Locked, nil)
	if err != nil {
		return nil, nil, err
	}
	order, err := staking.BuildUnlock(&staking.UnlockRequest{
		OrderID:   record.ID[:],
		LockTime:  record.Payload.LockTime,
		PublicKey: publicKey,
		Address:   req.Address,
		Locked:    locked,
		Balance:   balance,
		FeeRate:   feeRate,
		Network:   s.network,
	})
	if err != nil {
		return nil, nil, err
	}
	return order, &record.Payload, nil
}
