package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"llmarena/config"
	"llmarena/internal/core"
	"llmarena/internal/engine"
	"llmarena/internal/providers"
	"llmarena/internal/providers/simulated"
)

// failingBackend fails every call with err.
type failingBackend struct {
	err error
}

func (f failingBackend) Complete(context.Context, core.ModelDescriptor, string) (string, error) {
	return "", f.err
}

func (f failingBackend) Stream(context.Context, core.ModelDescriptor, string, time.Duration) (core.FragmentStream, error) {
	return nil, f.err
}

func newTestEngine(t *testing.T) *engine.Orchestrator {
	t.Helper()

	models := []core.ModelDescriptor{
		{ID: "llm-1", Provider: core.ProviderSimulated, DisplayName: "GPT-3.5 Turbo", SpeedClass: core.SpeedFast, ResponseLength: core.LengthRange{Min: 10, Max: 20}},
		{ID: "llm-2", Provider: core.ProviderSimulated, DisplayName: "GPT-4", SpeedClass: core.SpeedMedium, ResponseLength: core.LengthRange{Min: 5, Max: 5}},
		{ID: "broken", Provider: "broken"},
		{ID: "busy", Provider: "busy"},
	}
	registry, err := providers.NewModelRegistry(models)
	if err != nil {
		t.Fatalf("NewModelRegistry: %v", err)
	}

	sim := simulated.New(config.SimulationConfig{
		MinDelay:     time.Millisecond,
		MaxDelay:     time.Millisecond,
		DefaultDelay: time.Millisecond,
	})
	router, err := providers.NewRouter(registry, map[string]core.Backend{
		core.ProviderSimulated: sim,
		"broken":               failingBackend{err: core.NewProviderError("broken", http.StatusBadGateway, "Failed to generate response: boom", nil)},
		"busy":                 failingBackend{err: core.NewRateLimitError("busy", "Rate limit exceeded. Please try again later.")},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	return engine.NewOrchestrator(router, engine.Options{DefaultPacing: time.Millisecond})
}

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	return New(newTestEngine(t), cfg)
}

func post(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type sseEvent struct {
	name string
	data map[string]any
}

// parseSSE splits an event-stream body into events.
func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events  []sseEvent
		current sseEvent
	)
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data); err != nil {
				t.Fatalf("bad event data %q: %v", line, err)
			}
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	return events
}
