package api

import (
	"context"
	"math"
	"net/http"
	"time"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/feerate"
	"talos-staking/contract/payload"

	"github.com/labstack/echo/v4"
)

type feesResponse struct {
	Rates     feerate.Rates     `json:"rates"`
	Block     *feerate.FeeBlock `json:"block,omitempty"`
	FetchedAt int64             `json:"fetched_at,omitempty"` // unix seconds
	Ceiling   int64             `json:"ceiling"`
	Fallback  bool              `json:"fallback"`
}

type decodeResponse struct {
	Payload *payload.Payload `json:"payload"`
	TxID    string           `json:"txid,omitempty"`
}

type broadcastResponse struct {
	TxID string `json:"txid"`
}

func (s *Server) feeRates(c echo.Context) error {
	snapshot, ok := s.fees.Load()
	if !ok {
		rate := int64(math.Round(s.fallbackFee))
		return c.JSON(http.StatusOK, &feesResponse{
			Rates:    feerate.Rates{Fastest: rate, HalfHour: rate, Hour: rate},
			Ceiling:  feerate.Ceiling(nil, 0),
			Fallback: true,
		})
	}
	return c.JSON(http.StatusOK, &feesResponse{
		Rates:     snapshot.Rates,
		Block:     &snapshot.Block,
		FetchedAt: snapshot.FetchedAt.Unix(),
		Ceiling:   feerate.Ceiling(&snapshot.Block, 0),
	})
}

func (s *Server) decodePayload(c echo.Context) error {
	var req decodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	switch {
	case req.Tx != "":
		tx, err := decodeTx(req.Tx)
		if err != nil {
			return err
		}
		p, err := payload.Decipher(tx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &decodeResponse{Payload: p, TxID: tx.TxHash().String()})

	case req.Script != "":
		script, err := decodeHex(req.Script, "script")
		if err != nil {
			return err
		}
		p, err := payload.DecodeScript(script)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &decodeResponse{Payload: p})
	}
	return contracterrors.NewContractError(contracterrors.ErrInput, "need tx or script")
}

const broadcastTimeout = 30 * time.Second

func (s *Server) broadcast(c echo.Context) error {
	if s.broadcaster == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "broadcasting is disabled")
	}
	var req broadcastRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tx, err := decodeTx(req.Tx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), broadcastTimeout)
	defer cancel()
	txid, err := s.broadcaster.Broadcast(ctx, tx)
	if err != nil {
		s.metrics.Broadcasts.WithLabelValues("error").Inc()
		s.log.Warnf("broadcast %s: %s", tx.TxHash(), err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	s.metrics.Broadcasts.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, &broadcastResponse{TxID: txid})
}
