// Package metrics exposes the proxy's Prometheus metrics and a Recorder
// adapter satisfying dispatcher.Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolbridge_requests_total",
			Help: "Total number of chat completion requests handled",
		},
		[]string{"client_format", "backend_format", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolbridge_request_duration_seconds",
			Help:    "Request handling duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"client_format", "backend_format"},
	)

	BackendRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolbridge_backend_retries_total",
			Help: "Total number of retried backend calls",
		},
		[]string{"backend_format", "reason"},
	)

	ToolCallsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolbridge_tool_calls_detected_total",
			Help: "Total number of tool calls recognized, by source",
		},
		[]string{"source"}, // "native" or "xml"
	)

	StreamBufferTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toolbridge_stream_buffer_truncations_total",
			Help: "Total number of times a stream's tool-call buffer was tail-truncated",
		},
	)
)

// Recorder adapts the package-level collectors to dispatcher.Metrics.
type Recorder struct{}

func NewRecorder() Recorder { return Recorder{} }

func (Recorder) ObserveRequest(clientFormat, backendFormat, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(clientFormat, backendFormat, status).Inc()
	RequestDuration.WithLabelValues(clientFormat, backendFormat).Observe(duration.Seconds())
}

func (Recorder) IncRetry(backendFormat, reason string) {
	BackendRetriesTotal.WithLabelValues(backendFormat, reason).Inc()
}

func (Recorder) IncToolCallDetected(source string) {
	ToolCallsDetectedTotal.WithLabelValues(source).Inc()
}

func (Recorder) IncBufferTruncation() {
	StreamBufferTruncationsTotal.Inc()
}
