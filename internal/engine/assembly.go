package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"llmarena/internal/core"
)

// SSE error codes carried in the "error" field of error events.
const (
	CodeRateLimit     = "rate_limit"
	CodeTimeout       = "timeout"
	CodeServiceError  = "service_error"
	CodeProviderError = "provider_error"
	CodeInternalError = "internal_error"
)

const genericFailureMessage = "An unexpected error occurred"

// StreamErrorCode maps an error type to its wire code.
func StreamErrorCode(t core.ErrorType) string {
	switch t {
	case core.ErrorTypeRateLimited:
		return CodeRateLimit
	case core.ErrorTypeTimedOut:
		return CodeTimeout
	case core.ErrorTypeServiceUnavailable:
		return CodeServiceError
	case core.ErrorTypeProvider:
		return CodeProviderError
	}
	return CodeInternalError
}

// sequencer numbers the chunks of one (request, model) pair starting at 1.
type sequencer struct {
	modelID string
	last    int
	now     func() time.Time
}

func newSequencer(modelID string, now func() time.Time) *sequencer {
	return &sequencer{modelID: modelID, now: now}
}

func (s *sequencer) chunk(text string) core.Event {
	s.last++
	return core.Event{Kind: core.EventChunk, Chunk: &core.Chunk{
		Sequence:   s.last,
		ModelID:    s.modelID,
		Text:       text,
		ProducedAt: s.now(),
	}}
}

// final returns the terminal chunk: empty text, next sequence number.
func (s *sequencer) final() core.Event {
	s.last++
	return core.Event{Kind: core.EventChunk, Chunk: &core.Chunk{
		Sequence:   s.last,
		ModelID:    s.modelID,
		ProducedAt: s.now(),
		IsFinal:    true,
	}}
}

// errorEvent wraps err as the terminal error event of modelID.
// Internal errors are reported without detail.
func errorEvent(modelID string, err error, at time.Time) core.Event {
	gwErr := core.AsGatewayError(err)
	return core.Event{Kind: core.EventError, Error: &core.StreamError{
		Type:      gwErr.Type,
		Code:      StreamErrorCode(gwErr.Type),
		Message:   publicMessage(gwErr),
		ModelID:   modelID,
		Timestamp: at,
	}}
}

func publicMessage(e *core.GatewayError) string {
	if e.Type == core.ErrorTypeInternal {
		return genericFailureMessage
	}
	return e.Message
}

// NewBatchResult wraps results, already in request order.
func NewBatchResult(results []core.CompletionResult, at time.Time) *core.BatchResult {
	return &core.BatchResult{Responses: results, Timestamp: at}
}

// RenderEvent returns the SSE event name and JSON payload for ev.
func RenderEvent(ev core.Event) (string, []byte, error) {
	var payload any
	switch ev.Kind {
	case core.EventChunk:
		if ev.Chunk == nil {
			return "", nil, fmt.Errorf("chunk event without chunk")
		}
		payload = ev.Chunk
	case core.EventError:
		if ev.Error == nil {
			return "", nil, fmt.Errorf("error event without error")
		}
		payload = ev.Error
	default:
		return "", nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return string(ev.Kind), data, nil
}
