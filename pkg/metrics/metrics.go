// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	PostsFetchedTotal    *prometheus.CounterVec
	PapersFetchedTotal   prometheus.Counter
	FetchErrorsTotal     *prometheus.CounterVec
	ExtractionsTotal     *prometheus.CounterVec
	ExtractionLatency    prometheus.Histogram
	MentionsTotal        *prometheus.CounterVec
	MiningRunsTotal      *prometheus.CounterVec
	MiningDuration       prometheus.Histogram
	RulesReturned        prometheus.Histogram
	RuleCacheHitsTotal   prometheus.Counter
	RuleCacheMissesTotal prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
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
		PostsFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_fetched_total",
				Help: "Total Reddit posts fetched, by subreddit.",
			},
			[]string{"subreddit"},
		),
		PapersFetchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "papers_fetched_total",
				Help: "Total PubMed paper records fetched.",
			},
		),
		FetchErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_errors_total",
				Help: "Total fetch failures by source (reddit, pubmed).",
			},
			[]string{"source"},
		),
		ExtractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractions_total",
				Help: "Total LLM extraction calls by outcome (ok, empty, error).",
			},
			[]string{"outcome"},
		),
		ExtractionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "extraction_latency_seconds",
				Help:    "LLM extraction call latency in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		MentionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symptom_mentions_total",
				Help: "Total symptom mentions recorded, by source.",
			},
			[]string{"source"},
		),
		MiningRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mining_runs_total",
				Help: "Total association-mining runs by trigger (api, snapshot).",
			},
			[]string{"trigger"},
		),
		MiningDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mining_duration_seconds",
				Help:    "Wall-clock duration of a full mining run.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		RulesReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mining_rules_returned",
				Help:    "Number of rules returned per mining run.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		RuleCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rule_cache_hits_total",
				Help: "Total rule-cache hits.",
			},
		),
		RuleCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rule_cache_misses_total",
				Help: "Total rule-cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PostsFetchedTotal,
		m.PapersFetchedTotal,
		m.FetchErrorsTotal,
		m.ExtractionsTotal,
		m.ExtractionLatency,
		m.MentionsTotal,
		m.MiningRunsTotal,
		m.MiningDuration,
		m.RulesReturned,
		m.RuleCacheHitsTotal,
		m.RuleCacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
