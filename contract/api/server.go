// Package api serves the staking builders and the ledger over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"talos-staking/contract/blocklist"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/feerate"
	"talos-staking/contract/ledger"
	"talos-staking/contract/metrics"
	"talos-staking/contract/wallet"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// HTTPErrorResponse carries the error symbol as code for contract errors
// and the HTTP status otherwise.
type HTTPErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HTTPErrorResponseEnvelope struct {
	Error HTTPErrorResponse `json:"error"`
}

// statusOf maps contract error symbols to HTTP status codes.
func statusOf(symbol contracterrors.ErrorSymbol) int {
	switch symbol {
	case contracterrors.ErrNotFound:
		return http.StatusNotFound
	case contracterrors.ErrUserBlocked:
		return http.StatusForbidden
	case contracterrors.ErrStatusTransition:
		return http.StatusConflict
	case contracterrors.ErrStateAccess, contracterrors.ErrJson:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func errorHandler(log *zap.SugaredLogger) func(error, echo.Context) {
	return func(err error, c echo.Context) {
		var (
			statusCode int
			code       string
			message    string
		)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			statusCode = he.Code
			code = strconv.Itoa(statusCode)
			message = fmt.Sprint(he.Message)
		} else if symbol := contracterrors.SymbolOf(err); symbol != "" {
			statusCode = statusOf(symbol)
			code = string(symbol)
			message = err.Error()
		} else {
			statusCode = http.StatusInternalServerError
			code = strconv.Itoa(statusCode)
			message = fmt.Sprintf("internal server error. error: %s", err)
		}
		if statusCode >= http.StatusInternalServerError {
			log.Errorf("%s %s: %s", c.Request().Method, c.Request().RequestURI, err)
		}

		if c.Response().Committed {
			return
		}
		_ = c.JSON(statusCode, HTTPErrorResponseEnvelope{Error: HTTPErrorResponse{Code: code, Message: message}})
	}
}

type Options struct {
	Network     *chaincfg.Params
	Ledger      *ledger.Ledger
	Blocks      *blocklist.BlockList
	Fees        *feerate.Cache
	FallbackFee float64
	Broadcaster wallet.Broadcaster // optional
	Metrics     *metrics.Metrics
	Log         *zap.SugaredLogger
}

type Server struct {
	echo        *echo.Echo
	network     *chaincfg.Params
	ledger      *ledger.Ledger
	blocks      *blocklist.BlockList
	fees        *feerate.Cache
	fallbackFee float64
	broadcaster wallet.Broadcaster
	metrics     *metrics.Metrics
	log         *zap.SugaredLogger
}

func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	fees := opts.Fees
	if fees == nil {
		fees = new(feerate.Cache)
	}
	s := &Server{
		network:     opts.Network,
		ledger:      opts.Ledger,
		blocks:      opts.Blocks,
		fees:        fees,
		fallbackFee: opts.FallbackFee,
		broadcaster: opts.Broadcaster,
		metrics:     m,
		log:         log,
	}
	if s.network == nil {
		s.network = &chaincfg.TestNet3Params
	}
	if s.fallbackFee <= 0 {
		s.fallbackFee = 2
	}
	s.echo = s.newEcho()
	s.registerRoutes()
	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(s.log)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Errorf("Internal Server Error: %s \nrequestURI: %s\n %s", err.Error(), c.Request().RequestURI, string(debug.Stack()))
			return err
		},
	}))
	e.Use(s.observe)
	return e
}

// observe records request latency by route template.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.metrics.HTTPRequests.
			WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status)).
			Observe(float64(time.Since(start).Milliseconds()))
		s.log.Debugw("request", "method", c.Request().Method, "uri", c.Request().RequestURI, "status", c.Response().Status)
		return nil
	}
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.GET(RouteHealth, s.health)
	e.GET(RouteMetrics, echo.WrapHandler(s.metrics.Handler()))
	e.GET(RouteFees, s.feeRates)

	e.POST(RouteOrdersBTC, s.createBTCOrder)
	e.POST(RouteOrdersRunes, s.createRunesOrder)
	e.GET(RouteOrders, s.listOrders)
	e.GET(RouteOrder, s.getOrder)
	e.PUT(RouteOrderStatus, s.setOrderStatus)

	e.POST(RouteUnlock, s.unlock)
	e.POST(RoutePayloadDecode, s.decodePayload)
	e.POST(RouteBroadcast, s.broadcast)

	e.POST(RouteUsers, s.addUser)
	e.GET(RouteUser, s.getUser)
	e.POST(RouteUserBlock, s.blockUser)
	e.GET(RouteRunes, s.listRunes)
	e.POST(RouteRunes, s.addRune)
	e.PUT(RouteRuneStatus, s.setRuneStatus)

	e.POST(RouteBlocksSeed, s.seedBlocks)
	e.POST(RouteBlocks, s.addBlocks)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "api server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "api shutdown")
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "network": s.network.Name})
}
