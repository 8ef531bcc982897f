// Package metrics provides Prometheus metrics for the stream proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// extractionBuckets are wider: a cold extraction can take tens of seconds.
var extractionBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60}

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	ResponseBytes    *prometheus.CounterVec

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	Resolutions        *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	GateWaiting        prometheus.Gauge
	GateHeld           prometheus.Gauge
	MirrorAttempts     *prometheus.CounterVec
	SearchCache        *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audio_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audio_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		ResponseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_proxy_http_response_bytes_total",
			Help: "Bytes written to clients, mostly streamed audio.",
		}, []string{"path_prefix"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audio_proxy_upstream_request_duration_seconds",
			Help:    "Time to upstream response headers in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_proxy_upstream_responses_total",
			Help: "Total upstream responses by method and status code.",
		}, []string{"method", "status_code"}),

		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_proxy_resolutions_total",
			Help: "Stream resolutions by route and outcome (direct, mirror, exhausted, canceled).",
		}, []string{"route", "outcome"}),

		ExtractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audio_proxy_extraction_duration_seconds",
			Help:    "Direct extraction call latency in seconds, excluding gate wait.",
			Buckets: extractionBuckets,
		}, []string{"outcome"}),

		GateWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audio_proxy_extractor_gate_waiting",
			Help: "Requests waiting to acquire the extractor gate.",
		}),

		GateHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audio_proxy_extractor_gate_held",
			Help: "1 while an extraction call is in flight.",
		}),

		MirrorAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_proxy_mirror_attempts_total",
			Help: "Mirror metadata requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),

		SearchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audio_proxy_search_cache_total",
			Help: "Catalog search cache lookups by result (hit, miss).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.ResponseBytes,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.Resolutions,
		m.ExtractionDuration,
		m.GateWaiting,
		m.GateHeld,
		m.MirrorAttempts,
		m.SearchCache,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{
	"/stream", "/mirror-stream",
	"/api/stream", "/api/piped-stream",
	"/api/search", "/api/playlists", "/api/library", "/api/genres", "/api/ping",
	"/healthz", "/status", "/metrics",
}

// NormalizePath returns a bounded path label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
