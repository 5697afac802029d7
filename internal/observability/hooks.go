// Package observability records backend call metrics.
package observability

import (
	"time"

	"llmarena/internal/core"
)

// Call modes.
const (
	ModeComplete = "complete"
	ModeStream   = "stream"
)

// Call outcomes. Failures use the core error type string.
const OutcomeSuccess = "success"

// Hooks receives engine lifecycle events. Implementations must be safe for
// concurrent use and must not block.
type Hooks interface {
	// CallFinished is invoked once per backend call with its outcome.
	CallFinished(model core.ModelDescriptor, mode, outcome string, elapsed time.Duration)

	// ChunkEmitted is invoked for every non-terminal chunk delivered.
	ChunkEmitted(model core.ModelDescriptor)

	// StreamOpened and StreamClosed bracket one client-facing stream.
	StreamOpened()
	StreamClosed()
}

// Outcome maps a call error to an outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return string(core.AsGatewayError(err).Type)
}

// Noop discards every event.
type Noop struct{}

func (Noop) CallFinished(core.ModelDescriptor, string, string, time.Duration) {}
func (Noop) ChunkEmitted(core.ModelDescriptor)                               {}
func (Noop) StreamOpened()                                                    {}
func (Noop) StreamClosed()                                                    {}
