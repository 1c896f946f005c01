package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"talos-staking/contract/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := metrics.New()
	m.OrdersBuilt.WithLabelValues("btc").Inc()
	m.OrdersBuilt.WithLabelValues("btc").Inc()
	m.FeeRate.WithLabelValues("fastest").Set(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersBuilt.WithLabelValues("btc")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `talos_staking_orders_built_total{kind="btc"} 2`))
	assert.True(t, strings.Contains(body, `talos_staking_fee_rate_sat_vb{speed="fastest"} 12`))
}

func TestInstancesAreIndependent(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.FeeRefreshErrors.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.FeeRefreshErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FeeRefreshErrors))
}
