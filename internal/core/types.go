package core

import "time"

// ProviderSimulated is the provider name of the in-process simulated backend.
const ProviderSimulated = "simulated"

// SpeedClass is a coarse latency rating shown to clients.
type SpeedClass string

const (
	SpeedFast   SpeedClass = "Fast"
	SpeedMedium SpeedClass = "Medium"
	SpeedSlow   SpeedClass = "Slow"
)

// Valid reports whether the speed class is one of the known values.
func (s SpeedClass) Valid() bool {
	switch s {
	case SpeedFast, SpeedMedium, SpeedSlow:
		return true
	}
	return false
}

// LengthRange bounds the length in characters of a simulated response.
type LengthRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// ModelDescriptor is the static metadata of one selectable model.
type ModelDescriptor struct {
	ID                string      `json:"llm_id"`
	Provider          string      `json:"provider"`
	DisplayName       string      `json:"name"`
	Description       string      `json:"description"`
	AvgResponseLength string      `json:"avg_response_length"`
	SpeedClass        SpeedClass  `json:"speed_rating"`
	IsReasoning       bool        `json:"reasoning_model"`
	ResponseLength    LengthRange `json:"-"`
}

// CompletionRequest is a validated-on-entry request for one or more models.
type CompletionRequest struct {
	Prompt   string
	ModelIDs []string
	// Pacing is the base delay between fragments; zero means the configured default.
	Pacing time.Duration
}

// Chunk is the wire-level unit wrapping one fragment with sequencing metadata.
type Chunk struct {
	Sequence      int       `json:"chunk_id"`
	ModelID       string    `json:"llm_id"`
	SourceModelID string    `json:"source_llm,omitempty"`
	Text          string    `json:"text"`
	ProducedAt    time.Time `json:"timestamp"`
	IsFinal       bool      `json:"is_complete"`
}

// CompletionResult is the outcome of one non-streaming model call.
// Content and Error are never both set.
type CompletionResult struct {
	ID         string    `json:"id"`
	ModelID    string    `json:"llm_id"`
	Prompt     string    `json:"prompt"`
	Content    string    `json:"content"`
	Error      string    `json:"error,omitempty"`
	ErrorType  ErrorType `json:"error_type,omitempty"`
	ProducedAt time.Time `json:"timestamp"`
}

// Failed reports whether the result carries an error.
func (r *CompletionResult) Failed() bool {
	return r.Error != ""
}

// BatchResult holds one result per requested model, in request order.
type BatchResult struct {
	Responses []CompletionResult `json:"responses"`
	Timestamp time.Time          `json:"timestamp"`
}

// EventKind discriminates the payload of an Event.
type EventKind string

const (
	EventChunk EventKind = "chunk"
	EventError EventKind = "error"
)

// StreamError is the payload of an error event.
type StreamError struct {
	Type      ErrorType `json:"-"`
	Code      string    `json:"error"`
	Message   string    `json:"message"`
	ModelID   string    `json:"llm_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is one element of a (possibly merged) model stream.
type Event struct {
	Kind  EventKind
	Chunk *Chunk
	Error *StreamError
}

// ModelID returns the id of the model that produced the event.
func (e Event) ModelID() string {
	switch {
	case e.Chunk != nil:
		return e.Chunk.ModelID
	case e.Error != nil:
		return e.Error.ModelID
	}
	return ""
}

// Terminal reports whether the event ends its model's stream.
func (e Event) Terminal() bool {
	return e.Kind == EventError || (e.Chunk != nil && e.Chunk.IsFinal)
}

// Fragment is one piece of incrementally produced backend text.
type Fragment struct {
	Text  string
	Final bool
}
