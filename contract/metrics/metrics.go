// Package metrics exposes the service's prometheus meters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "talos_staking"

// Metrics owns a registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	OrdersBuilt      *prometheus.CounterVec
	OrderErrors      *prometheus.CounterVec
	StatusChanges    *prometheus.CounterVec
	FeeRate          *prometheus.GaugeVec
	FeeRefreshErrors prometheus.Counter
	Broadcasts       *prometheus.CounterVec
	HTTPRequests     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_built_total",
			Help:      "Unsigned staking transactions built, by kind.",
		}, []string{"kind"}),
		OrderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_errors_total",
			Help:      "Failed builds, by kind and error symbol.",
		}, []string{"kind", "symbol"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Ledger status transitions, by target status.",
		}, []string{"status"}),
		FeeRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fee_rate_sat_vb",
			Help:      "Latest derived fee rates.",
		}, []string{"speed"}),
		FeeRefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_refresh_errors_total",
			Help:      "Failed fee-rate polls.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Transactions pushed to the network, by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "API request latency.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
		}, []string{"method", "path", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OrdersBuilt,
		m.OrderErrors,
		m.StatusChanges,
		m.FeeRate,
		m.FeeRefreshErrors,
		m.Broadcasts,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
