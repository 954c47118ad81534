package toolserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kitforge/kit/internal/branding"
)

const (
	outcomeOK      = "ok"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

type metrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: branding.CacheNamespace(),
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and outcome (ok, failure, error).",
		}, []string{"tool", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: branding.CacheNamespace(),
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call duration in seconds.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 30, 120, 300},
		}, []string{"tool"}),
	}
}

func (m *metrics) observe(tool, result string, d time.Duration) {
	m.calls.WithLabelValues(tool, result).Inc()
	m.duration.WithLabelValues(tool).Observe(d.Seconds())
}
