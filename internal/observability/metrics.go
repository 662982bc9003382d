// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache request outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Retry metrics
	RetryAttempts *prometheus.CounterVec

	// Registry metrics
	ResolveTotal       *prometheus.CounterVec
	TokensLoaded       *prometheus.GaugeVec
	LoadDuration       prometheus.Histogram
	LastSuccessfulLoad prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	APICallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pool_resolver"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of TTL cache lookups by cache and result",
		}, []string{"cache", "result"}),

		RetryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "failed_attempts_total",
			Help:      "Total number of failed attempts inside retry loops",
		}, []string{"operation"}),

		ResolveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "resolve_total",
			Help:      "Total number of token resolutions by answering tier",
		}, []string{"tier"}),
		TokensLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "loaded",
			Help:      "Number of addresses contributed by each source in the current snapshot",
		}, []string{"source"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "load_duration_seconds",
			Help:      "Token table load duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		LastSuccessfulLoad: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_load_timestamp",
			Help:      "Unix timestamp of last successful token table load",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		APICallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tokenapi",
			Name:      "call_latency_seconds",
			Help:      "Token metadata API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordCacheRequest counts a cache lookup outcome.
func (m *Metrics) RecordCacheRequest(cache, result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordRetryAttempt counts a failed attempt of a retried operation.
func (m *Metrics) RecordRetryAttempt(operation string) {
	if m == nil {
		return
	}
	m.RetryAttempts.WithLabelValues(operation).Inc()
}

// RecordResolve counts a resolution answered by tier.
func (m *Metrics) RecordResolve(tier string) {
	if m == nil {
		return
	}
	m.ResolveTotal.WithLabelValues(tier).Inc()
}

// RecordLoad records a completed token table load.
func (m *Metrics) RecordLoad(sizes map[string]int, durationSeconds float64, unixSeconds int64) {
	if m == nil {
		return
	}
	for source, n := range sizes {
		m.TokensLoaded.WithLabelValues(source).Set(float64(n))
	}
	m.LoadDuration.Observe(durationSeconds)
	m.LastSuccessfulLoad.Set(float64(unixSeconds))
}

// RecordRPCLatency records RPC call latency.
func (m *Metrics) RecordRPCLatency(method string, seconds float64) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordAPILatency records metadata API call latency.
func (m *Metrics) RecordAPILatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.APICallLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
