// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and for tool calls.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termux_mcp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "termux_mcp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termux_mcp",
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Tool calls by outcome.",
		},
		[]string{"tool", "outcome"},
	)
	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "termux_mcp",
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool", "outcome"},
	)
)

// Register adds the collectors to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, toolCalls, toolDuration)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	Register()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

const (
	// OutcomeNotFound is the outcome recorded for calls naming no registered tool.
	OutcomeNotFound = "not_found"
	// UnknownTool replaces the caller supplied name for such calls so the
	// label set stays bounded by the registry.
	UnknownTool = "unknown"
)

func RecordToolCall(tool, outcome string, duration time.Duration) {
	Register()
	if outcome == OutcomeNotFound {
		tool = UnknownTool
	}
	toolCalls.WithLabelValues(tool, outcome).Inc()
	toolDuration.WithLabelValues(tool, outcome).Observe(duration.Seconds())
}
