// Package metrics defines the Prometheus collectors of the indexer, the query
// server and the PageRank jobs, and exposes an HTTP handler for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the binaries record into.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	TokensIndexedTotal   prometheus.Counter
	BlocksSpilledTotal   prometheus.Counter
	IndexMergesTotal     *prometheus.CounterVec
	PageRankIterations   *prometheus.GaugeVec
	PageRankDuration     *prometheus.HistogramVec

	reg prometheus.Registerer
}

// New creates all collectors and registers them with reg. A nil reg means
// the global default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by query type and outcome (hit, zero_result, error).",
			},
			[]string{"query_type", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query_type", "cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of matching documents per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 1000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		TokensIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tokens_indexed_total",
				Help: "Total tokens inserted into the index.",
			},
		),
		BlocksSpilledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_blocks_spilled_total",
				Help: "Total index blocks written to disk.",
			},
		),
		IndexMergesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_merges_total",
				Help: "Total block merge runs by status.",
			},
			[]string{"status"},
		),
		PageRankIterations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pagerank_iterations",
				Help: "Iterations or walks used by the last PageRank run per method.",
			},
			[]string{"method"},
		),
		PageRankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagerank_duration_seconds",
				Help:    "Wall time of PageRank computations per method.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"method"},
		),
		reg: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.TokensIndexedTotal,
		m.BlocksSpilledTotal,
		m.IndexMergesTotal,
		m.PageRankIterations,
		m.PageRankDuration,
	)

	return m
}

// RegisterGaugeFunc exposes a value sampled at scrape time, such as the
// number of resident postings lists.
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		fn,
	))
}
