package engine

import (
	"time"

	"github.com/google/uuid"

	"llmarena/config"
	"llmarena/internal/observability"
)

// Options bounds requests and shapes backend calls.
type Options struct {
	MaxPromptLength int
	MaxModels       int

	// DefaultPacing applies when a request has no pacing hint.
	DefaultPacing time.Duration
	MaxPacing     time.Duration

	// BackendTimeout bounds each backend call. Zero disables it.
	BackendTimeout time.Duration

	// MaxThinkingTime caps the simulated delay before a non-streaming
	// simulated answer is returned. Zero disables thinking time.
	MaxThinkingTime time.Duration

	Hooks observability.Hooks
	Now   func() time.Time
	NewID func() string
}

// OptionsFromConfig derives engine options from the application config.
func OptionsFromConfig(cfg *config.Config, hooks observability.Hooks) Options {
	return Options{
		MaxPromptLength: cfg.Limits.MaxPromptLength,
		MaxModels:       cfg.Limits.MaxModelsPerBatch,
		DefaultPacing:   cfg.Simulation.DefaultDelay,
		MaxPacing:       cfg.Limits.MaxDelay,
		BackendTimeout:  cfg.Limits.BackendTimeout,
		MaxThinkingTime: cfg.Simulation.MaxThinkingTime,
		Hooks:           hooks,
	}
}

func (o *Options) setDefaults() {
	if o.MaxPromptLength <= 0 {
		o.MaxPromptLength = 1000
	}
	if o.MaxModels <= 0 {
		o.MaxModels = 5
	}
	if o.DefaultPacing <= 0 {
		o.DefaultPacing = 50 * time.Millisecond
	}
	if o.MaxPacing <= 0 {
		o.MaxPacing = time.Second
	}
	if o.Hooks == nil {
		o.Hooks = observability.Noop{}
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}
