package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"llmarena/internal/core"
)

var (
	_ Hooks = Noop{}
	_ Hooks = (*PrometheusHooks)(nil)
)

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewPrometheusHooks(reg)
	model := core.ModelDescriptor{ID: "llm-1", Provider: core.ProviderSimulated}

	h.CallFinished(model, ModeComplete, OutcomeSuccess, 120*time.Millisecond)
	h.CallFinished(model, ModeStream, string(core.ErrorTypeRateLimited), 5*time.Millisecond)
	h.ChunkEmitted(model)
	h.ChunkEmitted(model)
	h.StreamOpened()
	h.StreamOpened()
	h.StreamClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(h.calls.WithLabelValues("llm-1", "simulated", ModeComplete, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.calls.WithLabelValues("llm-1", "simulated", ModeStream, "rate_limited")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.chunks.WithLabelValues("llm-1", "simulated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.inFlight))
	assert.Equal(t, 2, testutil.CollectAndCount(h.latency))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, "timed_out", Outcome(core.NewTimeoutError("p", "slow", nil)))
	assert.Equal(t, "internal_error", Outcome(errors.New("boom")))
}
