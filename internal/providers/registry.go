package providers

import (
	"fmt"

	"llmarena/config"
	"llmarena/internal/core"
)

// ModelRegistry is the immutable id → descriptor table. It is built once at
// startup and is safe for concurrent reads without locking.
type ModelRegistry struct {
	order  []string
	models map[string]core.ModelDescriptor
}

// NewModelRegistry builds a registry preserving the order of models.
// Duplicate or empty ids are rejected.
func NewModelRegistry(models []core.ModelDescriptor) (*ModelRegistry, error) {
	r := &ModelRegistry{
		order:  make([]string, 0, len(models)),
		models: make(map[string]core.ModelDescriptor, len(models)),
	}
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model with empty id")
		}
		if _, dup := r.models[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		r.order = append(r.order, m.ID)
		r.models[m.ID] = m
	}
	return r, nil
}

// Lookup returns the descriptor registered under id.
func (r *ModelRegistry) Lookup(id string) (core.ModelDescriptor, bool) {
	m, ok := r.models[id]
	return m, ok
}

// List returns all descriptors in registration order.
func (r *ModelRegistry) List() []core.ModelDescriptor {
	out := make([]core.ModelDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// IDs returns all ids in registration order.
func (r *ModelRegistry) IDs() []string {
	return append([]string(nil), r.order...)
}

// ModelCount returns the number of registered models.
func (r *ModelRegistry) ModelCount() int {
	return len(r.order)
}

// DescriptorsFromConfig converts configured models into descriptors.
func DescriptorsFromConfig(models []config.ModelConfig) []core.ModelDescriptor {
	out := make([]core.ModelDescriptor, 0, len(models))
	for _, m := range models {
		out = append(out, core.ModelDescriptor{
			ID:                m.ID,
			Provider:          m.Provider,
			DisplayName:       m.Name,
			Description:       m.Description,
			AvgResponseLength: m.AvgResponseLength,
			SpeedClass:        core.SpeedClass(m.SpeedRating),
			IsReasoning:       m.Reasoning,
			ResponseLength:    core.LengthRange{Min: m.ResponseLength.Min, Max: m.ResponseLength.Max},
		})
	}
	return out
}
