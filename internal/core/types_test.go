package core

import (
	"context"
	"testing"
)

func TestSpeedClassValid(t *testing.T) {
	for _, s := range []SpeedClass{SpeedFast, SpeedMedium, SpeedSlow} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []SpeedClass{"", "fast", "Turbo"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestEventTerminal(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  bool
		model string
	}{
		{"content chunk", Event{Kind: EventChunk, Chunk: &Chunk{ModelID: "m1", Text: "a"}}, false, "m1"},
		{"final chunk", Event{Kind: EventChunk, Chunk: &Chunk{ModelID: "m1", IsFinal: true}}, true, "m1"},
		{"error", Event{Kind: EventError, Error: &StreamError{ModelID: "m2"}}, true, "m2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
			if got := tt.event.ModelID(); got != tt.model {
				t.Errorf("ModelID() = %q, want %q", got, tt.model)
			}
		})
	}
}

func TestCompletionResultFailed(t *testing.T) {
	ok := CompletionResult{Content: "hi"}
	if ok.Failed() {
		t.Error("result with content should not be failed")
	}
	failed := CompletionResult{Error: "rate limited"}
	if !failed.Failed() {
		t.Error("result with error should be failed")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestID(ctx); got != "" {
		t.Fatalf("RequestID on empty context = %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID = %q, want req-123", got)
	}

	if WithRequestID(ctx, "") != ctx {
		t.Fatal("empty id should return the same context")
	}
	if Logger(ctx) == nil {
		t.Fatal("Logger returned nil")
	}
}
