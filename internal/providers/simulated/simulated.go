// Package simulated implements an in-process backend that fabricates answers
// from keyword templates, paces them rune by rune and fails at configured
// rates.
package simulated

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"llmarena/config"
	"llmarena/internal/core"
	"llmarena/internal/providers"
)

// Registration exposes the simulated backend to the provider factory.
var Registration = providers.Registration{
	Types: []string{core.ProviderSimulated},
	New: func(_ providers.ProviderConfig, deps providers.Deps) (core.Backend, error) {
		return New(deps.Simulation), nil
	},
}

// Error messages returned by simulated failures.
const (
	MsgRateLimited        = "Rate limit exceeded. Please try again later."
	MsgTimedOut           = "Request timed out. The LLM service is taking too long to respond."
	MsgServiceUnavailable = "LLM service is temporarily unavailable. Please try again later."
)

const minJitteredDelay = time.Millisecond

// Backend is the simulated core.Backend. Safe for concurrent use.
type Backend struct {
	cfg config.SimulationConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Backend.
type Option func(*Backend)

// WithRand replaces the random source, making output reproducible.
func WithRand(r *rand.Rand) Option {
	return func(b *Backend) { b.rng = r }
}

// New creates a simulated backend.
func New(cfg config.SimulationConfig, opts ...Option) *Backend {
	b := &Backend{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Complete returns the whole fabricated answer or a simulated failure.
func (b *Backend) Complete(ctx context.Context, model core.ModelDescriptor, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := b.drawError(); err != nil {
		return "", err
	}
	return b.answer(model, prompt), nil
}

// Stream returns a stream emitting one rune per fragment. A simulated failure
// is returned before any output.
func (b *Backend) Stream(ctx context.Context, model core.ModelDescriptor, prompt string, pacing time.Duration) (core.FragmentStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.drawError(); err != nil {
		return nil, err
	}
	if pacing <= 0 {
		pacing = b.cfg.DefaultDelay
	}
	return &stream{
		ctx:     ctx,
		backend: b,
		runes:   []rune(b.answer(model, prompt)),
		pacing:  pacing,
	}, nil
}

// drawError rolls once against the cumulative bands rate_limit, timeout,
// service_error.
func (b *Backend) drawError() error {
	if !b.cfg.EnableErrorSimulation {
		return nil
	}
	rates := b.cfg.ErrorRates

	b.mu.Lock()
	roll := b.rng.Float64()
	b.mu.Unlock()

	switch {
	case roll < rates.RateLimit:
		return core.NewRateLimitError(core.ProviderSimulated, MsgRateLimited)
	case roll < rates.RateLimit+rates.Timeout:
		return core.NewTimeoutError(core.ProviderSimulated, MsgTimedOut, nil)
	case roll < rates.Total():
		return core.NewServiceUnavailableError(core.ProviderSimulated, MsgServiceUnavailable)
	}
	return nil
}

func (b *Backend) answer(model core.ModelDescriptor, prompt string) string {
	return shapeLength(baseAnswer(model.ID, prompt), model.ID, b.targetLength(model.ResponseLength))
}

// targetLength draws uniformly from [Min, Max].
func (b *Backend) targetLength(r core.LengthRange) int {
	if r.Max <= r.Min {
		return max(r.Min, 1)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return r.Min + b.rng.IntN(r.Max-r.Min+1)
}

// delay jitters pacing by up to half in either direction, then clamps to the
// configured window.
func (b *Backend) delay(pacing time.Duration) time.Duration {
	b.mu.Lock()
	jitter := (b.rng.Float64() - 0.5) * float64(pacing)
	b.mu.Unlock()

	d := max(time.Duration(float64(pacing)+jitter), minJitteredDelay)
	if b.cfg.MinDelay > 0 {
		d = max(d, b.cfg.MinDelay)
	}
	if b.cfg.MaxDelay > 0 {
		d = min(d, b.cfg.MaxDelay)
	}
	return d
}

type stream struct {
	ctx     context.Context
	backend *Backend
	runes   []rune
	pacing  time.Duration
	pos     int
	done    bool
}

func (s *stream) Recv() (core.Fragment, error) {
	if s.done {
		return core.Fragment{}, io.EOF
	}
	if s.pos == len(s.runes) {
		s.done = true
		return core.Fragment{Final: true}, nil
	}

	timer := time.NewTimer(s.backend.delay(s.pacing))
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		s.done = true
		return core.Fragment{}, s.ctx.Err()
	case <-timer.C:
	}

	r := s.runes[s.pos]
	s.pos++
	return core.Fragment{Text: string(r)}, nil
}

func (s *stream) Close() error {
	s.done = true
	return nil
}
