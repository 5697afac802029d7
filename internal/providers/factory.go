// Package providers builds the backends behind the gateway and the immutable
// model registry that routes model ids to them.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"llmarena/config"
	"llmarena/internal/core"
)

// Deps carries shared infrastructure handed to every builder.
type Deps struct {
	// HTTPClient is the pooled client for live providers. May be nil.
	HTTPClient *http.Client

	// Simulation configures the simulated backend.
	Simulation config.SimulationConfig
}

// Builder creates a backend from a resolved provider configuration.
type Builder func(cfg ProviderConfig, deps Deps) (core.Backend, error)

// Registration is what a provider package exports so the application can
// register it on a factory.
type Registration struct {
	// Types are the provider types this builder serves.
	Types []string
	New   Builder
}

// ProviderFactory maps provider types to builders.
type ProviderFactory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewProviderFactory creates an empty factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{builders: make(map[string]Builder)}
}

// Register binds providerType to builder, replacing any previous binding.
func (f *ProviderFactory) Register(providerType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[providerType] = builder
}

// Add registers every type of a Registration.
func (f *ProviderFactory) Add(reg Registration) {
	for _, t := range reg.Types {
		f.Register(t, reg.New)
	}
}

// Create instantiates a backend for cfg.
func (f *ProviderFactory) Create(cfg ProviderConfig, deps Deps) (core.Backend, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	return builder(cfg, deps)
}

// ListRegistered returns the registered provider types, sorted.
func (f *ProviderFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
