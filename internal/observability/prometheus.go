package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"llmarena/internal/core"
)

// PrometheusHooks implements Hooks with Prometheus collectors.
type PrometheusHooks struct {
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	chunks   *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewPrometheusHooks registers the gateway collectors on reg.
// Pass prometheus.DefaultRegisterer to expose them via promhttp.Handler.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmarena",
			Name:      "backend_calls_total",
			Help:      "Backend calls by model, provider, mode and outcome.",
		}, []string{"model", "provider", "mode", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "llmarena",
			Name:      "backend_call_duration_seconds",
			Help:      "Wall-clock duration of backend calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"model", "provider", "mode"}),
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmarena",
			Name:      "stream_chunks_total",
			Help:      "Content chunks delivered to clients.",
		}, []string{"model", "provider"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmarena",
			Name:      "streams_in_flight",
			Help:      "Client-facing streams currently open.",
		}),
	}
}

func (h *PrometheusHooks) CallFinished(model core.ModelDescriptor, mode, outcome string, elapsed time.Duration) {
	h.calls.WithLabelValues(model.ID, model.Provider, mode, outcome).Inc()
	h.latency.WithLabelValues(model.ID, model.Provider, mode).Observe(elapsed.Seconds())
}

func (h *PrometheusHooks) ChunkEmitted(model core.ModelDescriptor) {
	h.chunks.WithLabelValues(model.ID, model.Provider).Inc()
}

func (h *PrometheusHooks) StreamOpened() { h.inFlight.Inc() }
func (h *PrometheusHooks) StreamClosed() { h.inFlight.Dec() }
