package api

import (
	"encoding/hex"
	"net/http"

	"talos-staking/contract/commitreveal"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/ledger"
	"talos-staking/contract/runestone"
	"talos-staking/contract/staking"

	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"
)

type orderResponse struct {
	Order         *ledger.OrderRecord `json:"order"`
	Psbt          string              `json:"psbt"` // base64
	Fee           int64               `json:"fee"`
	Inputs        int                 `json:"inputs"`
	Outputs       int                 `json:"outputs"`
	CommitAddress string              `json:"commit_address"`
	LeafScript    string              `json:"leaf_script"`
	CommitFee     int64               `json:"commit_fee,omitempty"`
	RevealFee     int64               `json:"reveal_fee,omitempty"`
	CommitAmount  int64               `json:"commit_amount,omitempty"`
	StakeAmount   int64               `json:"stake_amount,omitempty"`
	TotalFee      int64               `json:"total_fee,omitempty"`
}

func newOrderResponse(record *ledger.OrderRecord, order *staking.Order) (*orderResponse, error) {
	b64, err := order.Packet.B64Encode()
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "encode psbt")
	}
	return &orderResponse{
		Order:         record,
		Psbt:          b64,
		Fee:           order.Fee,
		Inputs:        len(order.Inputs),
		Outputs:       len(order.Outputs),
		CommitAddress: order.Descriptor.Address.EncodeAddress(),
		LeafScript:    commitreveal.Disasm(order.Descriptor.LeafScript),
	}, nil
}

func (s *Server) feeRate(requested float64) float64 {
	if requested > 0 {
		return requested
	}
	return s.fees.HalfHour(s.fallbackFee)
}

func (s *Server) countBuild(kind ledger.Kind, err error) {
	if err != nil {
		s.metrics.OrderErrors.WithLabelValues(string(kind), string(contracterrors.SymbolOf(err))).Inc()
		return
	}
	s.metrics.OrdersBuilt.WithLabelValues(string(kind)).Inc()
}

// orderFor returns the ledger record to build against: the named one, which
// must still be created and belong to address, or a fresh one from create.
// fresh reports whether the record was created by this call.
func (s *Server) orderFor(orderID string, kind ledger.Kind, address string, create func() (*ledger.OrderRecord, error)) (record *ledger.OrderRecord, fresh bool, err error) {
	if orderID == "" {
		record, err = create()
		return record, err == nil, err
	}
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, false, err
	}
	record, err = s.ledger.Order(id)
	if err != nil {
		return nil, false, err
	}
	if record.Kind != kind || record.Address != address {
		return nil, false, contracterrors.NewContractError(contracterrors.ErrInput, "order does not match request", orderID)
	}
	if record.Status != ledger.StatusCreated {
		return nil, false, contracterrors.NewContractError(
			contracterrors.ErrStatusTransition,
			"order is "+string(record.Status),
			orderID,
		)
	}
	return record, false, nil
}

// senderKey is the request key or else the key the user registered.
func (s *Server) senderKey(publicKeyHex string, address string) ([]byte, error) {
	if publicKeyHex == "" {
		user, err := s.ledger.User(address)
		if err != nil {
			return nil, err
		}
		publicKeyHex = user.PublicKey
	}
	return decodeHex(publicKeyHex, "public key")
}

// discard drops a record created for a build that then failed.
func (s *Server) discard(record *ledger.OrderRecord, fresh bool) {
	if !fresh {
		return
	}
	if err := s.ledger.RemoveOrder(record.ID); err != nil {
		s.log.Warnf("remove order %x: %s", record.ID, err)
	}
}

func (s *Server) createBTCOrder(c echo.Context) error {
	var req btcOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := s.buildBTCOrder(&req)
	s.countBuild(ledger.KindBTC, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) buildBTCOrder(req *btcOrderRequest) (*orderResponse, error) {
	if req.Stake <= 0 {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "stake must be positive")
	}
	publicKey, err := s.senderKey(req.PublicKey, req.Address)
	if err != nil {
		return nil, err
	}
	senderScript, err := s.addressScript(req.Address)
	if err != nil {
		return nil, err
	}
	balance, err := toUtxos(req.Utxos, senderScript)
	if err != nil {
		return nil, err
	}

	record, fresh, err := s.orderFor(req.OrderID, ledger.KindBTC, req.Address, func() (*ledger.OrderRecord, error) {
		return s.ledger.CreateBTCOrder(req.Address, req.LockTime, uint256.NewInt(uint64(req.Stake)))
	})
	if err != nil {
		return nil, err
	}

	orderReq := staking.OrderRequest{
		OrderID:   record.ID[:],
		LockTime:  record.Payload.LockTime,
		PublicKey: publicKey,
		Address:   req.Address,
		FeeRate:   s.feeRate(req.FeeRate),
		Network:   s.network,
	}
	if req.EmbedPayload {
		orderReq.Payload = &record.Payload
	}
	order, err := staking.BuildBTCOrder(&staking.BTCOrderRequest{
		OrderRequest: orderReq,
		Balance:      balance,
		Stake:        req.Stake,
	})
	if err != nil {
		s.discard(record, fresh)
		return nil, err
	}

	resp, err := newOrderResponse(record, &order.Order)
	if err != nil {
		s.discard(record, fresh)
		return nil, err
	}
	resp.CommitFee = order.CommitFee
	resp.RevealFee = order.RevealFee
	resp.CommitAmount = order.CommitAmount
	resp.StakeAmount = order.StakeAmount
	resp.TotalFee = order.TotalFee
	return resp, nil
}

func (s *Server) createRunesOrder(c echo.Context) error {
	var req runesOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := s.buildRunesOrder(&req)
	s.countBuild(ledger.KindRunes, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) buildRunesOrder(req *runesOrderRequest) (*orderResponse, error) {
	runeID, err := runestone.ParseRuneID(req.RuneID)
	if err != nil {
		return nil, err
	}
	stake, err := parseDecimal(req.Stake, "stake")
	if err != nil {
		return nil, err
	}
	publicKey, err := s.senderKey(req.PublicKey, req.Address)
	if err != nil {
		return nil, err
	}
	senderScript, err := s.addressScript(req.Address)
	if err != nil {
		return nil, err
	}
	runeUtxos, err := toUtxos(req.RuneUtxos, senderScript)
	if err != nil {
		return nil, err
	}
	balance, err := toUtxos(req.Utxos, senderScript)
	if err != nil {
		return nil, err
	}

	record, fresh, err := s.orderFor(req.OrderID, ledger.KindRunes, req.Address, func() (*ledger.OrderRecord, error) {
		return s.ledger.CreateRunesOrder(req.Address, runeID.String(), req.LockTime, stake)
	})
	if err != nil {
		return nil, err
	}
	if record.RuneID != runeID.String() {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "order is for rune "+record.RuneID)
	}

	orderReq := staking.OrderRequest{
		OrderID:   record.ID[:],
		LockTime:  record.Payload.LockTime,
		PublicKey: publicKey,
		Address:   req.Address,
		FeeRate:   s.feeRate(req.FeeRate),
		Network:   s.network,
	}
	if req.EmbedPayload {
		orderReq.Payload = &record.Payload
	}
	order, err := staking.BuildRunesOrder(&staking.RunesOrderRequest{
		OrderRequest: orderReq,
		RuneID:       runeID,
		RuneUtxos:    runeUtxos,
		Balance:      balance,
		Stake:        record.StakeAmount,
	})
	if err != nil {
		s.discard(record, fresh)
		return nil, err
	}
	resp, err := newOrderResponse(record, order)
	if err != nil {
		s.discard(record, fresh)
		return nil, err
	}
	return resp, nil
}

func (s *Server) getOrder(c echo.Context) error {
	id, err := parseOrderID(c.Param(ParameterOrderID))
	if err != nil {
		return err
	}
	record, err := s.ledger.Order(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) listOrders(c echo.Context) error {
	records, err := s.ledger.Orders(ledger.Filter{
		Address: c.QueryParam(QueryParameterAddress),
		RuneID:  c.QueryParam(QueryParameterRuneID),
		Kind:    ledger.Kind(c.QueryParam(QueryParameterKind)),
		Status:  ledger.Status(c.QueryParam(QueryParameterStatus)),
	})
	if err != nil {
		return err
	}
	if records == nil {
		records = []*ledger.OrderRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) setOrderStatus(c echo.Context) error {
	id, err := parseOrderID(c.Param(ParameterOrderID))
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, err := ledger.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	if req.CommitTxID != "" {
		if _, err := hex.DecodeString(req.CommitTxID); err != nil || len(req.CommitTxID) != 64 {
			return contracterrors.NewContractError(contracterrors.ErrInvalidHex, "commit txid must be 32 bytes of hex")
		}
	}
	record, err := s.ledger.Transition(id, status, req.Reason, req.CommitTxID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}
