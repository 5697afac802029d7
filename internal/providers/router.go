package providers

import (
	"fmt"

	"llmarena/internal/core"
)

// Router pairs the model registry with the backend serving each provider.
// It implements core.BackendResolver.
type Router struct {
	*ModelRegistry
	backends map[string]core.Backend
}

// NewRouter creates a router. Every registered model must have a backend for
// its provider.
func NewRouter(registry *ModelRegistry, backends map[string]core.Backend) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	for _, m := range registry.List() {
		if backends[m.Provider] == nil {
			return nil, fmt.Errorf("model %q: no backend for provider %q", m.ID, m.Provider)
		}
	}
	return &Router{ModelRegistry: registry, backends: backends}, nil
}

// BackendFor returns the backend of model's provider.
func (r *Router) BackendFor(model core.ModelDescriptor) (core.Backend, error) {
	b, ok := r.backends[model.Provider]
	if !ok {
		return nil, core.NewInternalError(fmt.Sprintf("no backend for provider %q", model.Provider), nil)
	}
	return b, nil
}

// servedModels splits models into those whose provider has a backend and
// those that do not.
func servedModels(models []core.ModelDescriptor, backends map[string]core.Backend) (served, dropped []core.ModelDescriptor) {
	for _, m := range models {
		if backends[m.Provider] != nil {
			served = append(served, m)
		} else {
			dropped = append(dropped, m)
		}
	}
	return served, dropped
}
