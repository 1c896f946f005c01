package feerate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"talos-staking/contract/feerate"
	"talos-staking/contract/metrics"

	"github.com/CosmWasm/tinyjson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mempoolBlocks = `[
 {"blockSize":1604944,"blockVSize":997934.5,"nTx":3577,"totalFees":12483010,"medianFee":10.2,
  "feeRange":[4.1,6.02,8.5,10.1,12.6,19.4,150]},
 {"blockSize":1600000,"blockVSize":997000,"nTx":2000,"totalFees":5000000,"medianFee":3,"feeRange":[2,3,4]}
]`

func TestToRates(t *testing.T) {
	rates := feerate.ToRates(&feerate.FeeBlock{FeeRange: []float64{4.1, 6.02, 8.5, 10.1, 12.6, 19.4, 150}})
	assert.Equal(t, feerate.Rates{Fastest: 19, HalfHour: 10, Hour: 4}, rates)

	// flat ranges are bumped apart
	rates = feerate.ToRates(&feerate.FeeBlock{FeeRange: []float64{1, 1, 1, 1}})
	assert.Equal(t, feerate.Rates{Fastest: 3, HalfHour: 2, Hour: 1}, rates)

	// a single entry feeds every preset
	rates = feerate.ToRates(&feerate.FeeBlock{FeeRange: []float64{0.2}})
	assert.Equal(t, feerate.Rates{Fastest: 3, HalfHour: 2, Hour: 1}, rates)

	rates = feerate.ToRates(nil)
	assert.True(t, rates.Hour < rates.HalfHour && rates.HalfHour < rates.Fastest)
}

func TestCeiling(t *testing.T) {
	assert.Equal(t, int64(200), feerate.Ceiling(nil, 0))
	block := &feerate.FeeBlock{FeeRange: []float64{1, 20.5}}
	assert.Equal(t, int64(21), feerate.Ceiling(block, 0))
	assert.Equal(t, int64(100), feerate.Ceiling(block, 5))
	assert.Equal(t, int64(300), feerate.Ceiling(block, 300))
}

func TestDecodeBlocks(t *testing.T) {
	var blocks feerate.FeeBlocks
	require.NoError(t, tinyjson.Unmarshal([]byte(mempoolBlocks), &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, int64(3577), blocks[0].NTx)
	assert.Equal(t, 10.2, blocks[0].MedianFee)
	assert.Len(t, blocks[0].FeeRange, 7)
	assert.Equal(t, []float64{4.1, 6.02, 8.5, 10.1, 12.6, 19.4, 150}, blocks[0].FeeRange)
	assert.Equal(t, 997934.5, blocks[0].BlockVSize)
	assert.Equal(t, []float64{2, 3, 4}, blocks[1].FeeRange)

	out, err := tinyjson.Marshal(blocks[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"blockSize":1604944,"blockVSize":997934.5,"nTx":3577,"totalFees":12483010,`+
		`"medianFee":10.2,"feeRange":[4.1,6.02,8.5,10.1,12.6,19.4,150]}`, string(out))

	var bad feerate.FeeBlocks
	assert.Error(t, tinyjson.Unmarshal([]byte(`[{"medianFee":"fast"}]`), &bad))

	out, err = tinyjson.Marshal(feerate.Rates{Fastest: 3, HalfHour: 2, Hour: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fastestFee":3,"halfHourFee":2,"hourFee":1}`, string(out))
}

func TestCache(t *testing.T) {
	var cache feerate.Cache
	_, ok := cache.Load()
	assert.False(t, ok)
	assert.Equal(t, 7.0, cache.HalfHour(7))

	now := time.Now()
	cache.Store(feerate.FeeBlock{FeeRange: []float64{4.1, 6.02, 8.5, 10.1, 12.6, 19.4, 150}}, now)
	s, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, now, s.FetchedAt)
	assert.Equal(t, 10.0, cache.HalfHour(7))
}

func TestPollerRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/fees/mempool-blocks", r.URL.Path)
		calls.Add(1)
		_, _ = w.Write([]byte(mempoolBlocks))
	}))
	defer srv.Close()

	var cache feerate.Cache
	m := metrics.New()
	p := feerate.NewPoller(srv.URL+"/api", time.Hour, &cache, m, nil)
	require.NoError(t, p.Refresh(context.Background()))

	s, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, int64(19), s.Rates.Fastest)
	assert.Equal(t, 10.0, testutil.ToFloat64(m.FeeRate.WithLabelValues("half_hour")))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var cache feerate.Cache
	m := metrics.New()
	p := feerate.NewPoller(srv.URL, time.Hour, &cache, m, nil)
	assert.Error(t, p.Refresh(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	p = feerate.NewPoller(down.URL, time.Hour, &cache, m, nil)
	assert.Error(t, p.Refresh(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FeeRefreshErrors))
	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestPollerRunStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(mempoolBlocks))
	}))
	defer srv.Close()

	var cache feerate.Cache
	p := feerate.NewPoller(srv.URL, 10*time.Millisecond, &cache, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
