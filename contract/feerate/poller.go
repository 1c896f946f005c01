package feerate

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"talos-staking/contract/metrics"

	"github.com/CosmWasm/tinyjson"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultInterval = 15 * time.Second

// Poller refreshes a Cache from {base}/v1/fees/mempool-blocks.
type Poller struct {
	base     string
	interval time.Duration
	client   *http.Client
	cache    *Cache
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
}

func NewPoller(base string, interval time.Duration, cache *Cache, m *metrics.Metrics, log *zap.SugaredLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Poller{
		base:     strings.TrimRight(base, "/"),
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		cache:    cache,
		metrics:  m,
		log:      log,
	}
}

// Fetch downloads the projected blocks and returns the next one.
func (p *Poller) Fetch(ctx context.Context) (*FeeBlock, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/v1/fees/mempool-blocks", nil)
	if err != nil {
		return nil, errors.Wrap(err, "new fee request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch fee blocks")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read fee blocks")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fee blocks: %s", resp.Status)
	}

	var blocks FeeBlocks
	if err := tinyjson.Unmarshal(body, &blocks); err != nil {
		return nil, errors.Wrap(err, "decode fee blocks")
	}
	if len(blocks) == 0 {
		return nil, errors.New("no projected blocks")
	}
	return &blocks[0], nil
}

// Refresh fetches once and stores the result.
func (p *Poller) Refresh(ctx context.Context) error {
	block, err := p.Fetch(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FeeRefreshErrors.Inc()
		}
		return err
	}
	s := p.cache.Store(*block, time.Now())
	if p.metrics != nil {
		p.metrics.FeeRate.WithLabelValues("fastest").Set(float64(s.Rates.Fastest))
		p.metrics.FeeRate.WithLabelValues("half_hour").Set(float64(s.Rates.HalfHour))
		p.metrics.FeeRate.WithLabelValues("hour").Set(float64(s.Rates.Hour))
	}
	p.log.Debugw("fee rates refreshed", "fastest", s.Rates.Fastest, "half_hour", s.Rates.HalfHour, "hour", s.Rates.Hour)
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Failed polls are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.log.Warnf("fee refresh failed: %s", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
