// Package core defines the core interfaces and types for the completion gateway.
package core

import (
	"context"
	"time"
)

// Backend produces text for one (model, prompt) pair.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Complete returns the full completion text.
	Complete(ctx context.Context, model ModelDescriptor, prompt string) (string, error)

	// Stream returns a lazy, finite, non-restartable sequence of fragments.
	// Errors detected before any output is produced are returned here.
	Stream(ctx context.Context, model ModelDescriptor, prompt string, pacing time.Duration) (FragmentStream, error)
}

// FragmentStream yields fragments until io.EOF.
// The last fragment before io.EOF has Final set. Close must always be called.
type FragmentStream interface {
	Recv() (Fragment, error)
	Close() error
}

// ModelLookup defines the read-only view of the model registry.
type ModelLookup interface {
	// Lookup returns the descriptor for the given id.
	Lookup(id string) (ModelDescriptor, bool)

	// List returns all descriptors in registration order.
	List() []ModelDescriptor

	// IDs returns all registered ids in registration order.
	IDs() []string
}

// BackendResolver is a ModelLookup that can also hand out the backend serving
// a model.
type BackendResolver interface {
	ModelLookup

	// BackendFor returns the backend of the model's provider.
	BackendFor(model ModelDescriptor) (Backend, error)
}
