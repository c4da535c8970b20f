// Package metrics instruments the state engine and broadcast hub with
// Prometheus counters/gauges (C10).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every series this service exports.
type Metrics struct {
	Height          prometheus.Gauge
	ApplyLatency    prometheus.Histogram
	ApplyErrors     *prometheus.CounterVec
	Subscribers     prometheus.Gauge
	L2FramesEmitted prometheus.Counter
}

// New registers and returns a fresh Metrics set against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Height: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orderbook",
			Name:      "engine_height",
			Help:      "Current block height reflected by the state engine.",
		}),
		ApplyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orderbook",
			Name:      "apply_updates_seconds",
			Help:      "Latency of a single ApplyUpdates call.",
			Buckets:   prometheus.DefBuckets,
		}),
		ApplyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderbook",
			Name:      "apply_updates_errors_total",
			Help:      "Count of ApplyUpdates failures, labeled by error kind.",
		}, []string{"kind"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orderbook",
			Name:      "broadcast_subscribers",
			Help:      "Number of connected WebSocket subscribers.",
		}),
		L2FramesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orderbook",
			Name:      "l2_frames_emitted_total",
			Help:      "Count of deduplicated L2 frames emitted to subscribers.",
		}),
	}
}

// Handler returns the HTTP handler serving these metrics in the
// Prometheus text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
