package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Refresh attempts per segment source. Watch for: failure share climbing (upstream down or page layout changed).
	SegmentRefreshesTotal *prometheus.CounterVec

	// Records handed to renderers, by state (fresh, refreshed, unavailable). Watch for: unavailable serves.
	RecordServesTotal *prometheus.CounterVec

	// Age of the record last served per source, measured from its refresh attempt.
	RecordAgeSeconds *prometheus.GaugeVec

	// Upstream HTTP calls by source and status label. Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per call. Watch for: p95 approaching the client timeout.
	UpstreamDurationSeconds *prometheus.HistogramVec

	// Retry attempts per source. Watch for: high retries = unstable upstream.
	UpstreamRetriesTotal *prometheus.CounterVec

	// Circuit breaker state per source (0 closed, 1 half-open, 2 open).
	CircuitBreakerState *prometheus.GaugeVec

	// Render passes over all segments, and their wall-clock duration.
	RenderPassesTotal         prometheus.Counter
	RenderPassDurationSeconds prometheus.Histogram

	// Status server requests.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	SegmentRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmentRefreshesTotal",
			Help: "Total number of segment refresh attempts",
		},
		[]string{"source", "outcome"},
	)
	RecordServesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordServesTotal",
			Help: "Records handed to renderers by state (fresh, refreshed, unavailable)",
		},
		[]string{"source", "state"},
	)
	RecordAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recordAgeSeconds",
			Help: "Seconds since the refresh attempt behind the last served record",
		},
		[]string{"source"},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream HTTP calls",
		},
		[]string{"source", "status"},
	)
	UpstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream HTTP latency in seconds (per call, retries included)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source", "status"},
	)
	UpstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamRetriesTotal",
			Help: "Total number of upstream retry attempts",
		},
		[]string{"source"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per source: 0 closed, 1 half-open, 2 open",
		},
		[]string{"source"},
	)
	RenderPassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderPassesTotal",
			Help: "Total number of display render passes",
		},
	)
	RenderPassDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "renderPassDurationSeconds",
			Help:    "Render pass duration in seconds, refreshes included",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of status server requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "Status server request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		SegmentRefreshesTotal, RecordServesTotal, RecordAgeSeconds,
		UpstreamCallsTotal, UpstreamDurationSeconds, UpstreamRetriesTotal,
		CircuitBreakerState,
		RenderPassesTotal, RenderPassDurationSeconds,
		HTTPRequestsTotal, HTTPRequestDuration,
	)
}

// CircuitBreakerStateValue maps a breaker state name to the gauge value.
func CircuitBreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
