// Package metrics exposes Prometheus counters and histograms for the
// waterfall server.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "waterfall"

// Run outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomePrecondition = "precondition"
	OutcomeError        = "error"
)

// Metrics holds all collectors. Each instance owns its registry so several
// servers (or tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Waterfall metrics
	WaterfallRuns     *prometheus.CounterVec
	WaterfallDuration prometheus.Histogram
	AllocatedTotal    *prometheus.CounterVec

	// Ingestion metrics
	RowsImported *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		WaterfallRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total waterfall runs by outcome",
		}, []string{"outcome"}),
		WaterfallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Waterfall computation time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		AllocatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "allocated_total",
			Help:      "Sum of amounts allocated by successful runs, by party",
		}, []string{"party"}),

		RowsImported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "CSV rows imported by kind",
		}, []string{"kind"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(method, route string, status int, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordRun records a waterfall run and its duration.
func (m *Metrics) RecordRun(outcome string, seconds float64) {
	m.WaterfallRuns.WithLabelValues(outcome).Inc()
	m.WaterfallDuration.Observe(seconds)
}

// RecordAllocation adds a successful run's LP and GP totals.
func (m *Metrics) RecordAllocation(lp, gp decimal.Decimal) {
	m.AllocatedTotal.WithLabelValues("lp").Add(lp.InexactFloat64())
	m.AllocatedTotal.WithLabelValues("gp").Add(gp.InexactFloat64())
}

// RecordImport records the row counts of one CSV import.
func (m *Metrics) RecordImport(commitments, transactions, skipped int) {
	m.RowsImported.WithLabelValues("commitments").Add(float64(commitments))
	m.RowsImported.WithLabelValues("transactions").Add(float64(transactions))
	m.RowsImported.WithLabelValues("skipped").Add(float64(skipped))
}
