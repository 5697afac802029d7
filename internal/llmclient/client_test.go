package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"llmarena/internal/core"
)

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	client := New(nil, Config{ProviderName: "test", BaseURL: server.URL}, func(req *http.Request) {
		req.Header.Set("X-Test", "value")
	})

	var result struct {
		Message string `json:"message"`
	}
	err := client.Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/test"}, &result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "hello" {
		t.Errorf("expected message 'hello', got '%s'", result.Message)
	}
}

func TestClient_Do_RequestShape(t *testing.T) {
	var (
		receivedBody  map[string]any
		receivedQuery url.Values
		receivedPath  string
		receivedHdr   http.Header
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &receivedBody)
		receivedQuery = r.URL.Query()
		receivedPath = r.URL.Path
		receivedHdr = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.Client(), Config{ProviderName: "test", BaseURL: server.URL}, func(req *http.Request) {
		req.Header.Set("api-key", "secret")
	})

	err := client.Do(context.Background(), Request{
		Method:   http.MethodPost,
		Endpoint: "/openai/deployments/gpt-4.1/chat/completions",
		Query:    url.Values{"api-version": {"2025-04-01-preview"}},
		Body:     map[string]string{"input": "test"},
		Headers:  map[string]string{"X-Custom": "1"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPath != "/openai/deployments/gpt-4.1/chat/completions" {
		t.Errorf("path = %q", receivedPath)
	}
	if got := receivedQuery.Get("api-version"); got != "2025-04-01-preview" {
		t.Errorf("api-version = %q", got)
	}
	if receivedBody["input"] != "test" {
		t.Errorf("expected input 'test', got '%v'", receivedBody["input"])
	}
	if receivedHdr.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", receivedHdr.Get("Content-Type"))
	}
	if receivedHdr.Get("api-key") != "secret" || receivedHdr.Get("X-Custom") != "1" {
		t.Errorf("headers not applied: %v", receivedHdr)
	}
}

func TestClient_Do_ErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	client := New(nil, Config{ProviderName: "openai", BaseURL: server.URL}, nil)
	err := client.Do(context.Background(), Request{Method: http.MethodPost, Endpoint: "/x"}, nil)

	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
	if gwErr.Type != core.ErrorTypeProvider || gwErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("got %s/%d", gwErr.Type, gwErr.StatusCode)
	}
	if gwErr.Message != "provider returned status 429: Rate limit reached" {
		t.Errorf("message = %q", gwErr.Message)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 call, got %d", n)
	}
}

func TestClient_Do_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := New(nil, Config{ProviderName: "test", BaseURL: server.URL}, nil)
	var out map[string]any
	err := client.Do(context.Background(), Request{Method: http.MethodGet}, &out)

	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Type != core.ErrorTypeProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestClient_DoStream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"x\":1}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	client := New(nil, Config{ProviderName: "test", BaseURL: server.URL}, nil)
	body, err := client.DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/stream"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = body.Close() }()

	data, _ := io.ReadAll(body)
	if string(data) != "data: {\"x\":1}\n\ndata: [DONE]\n\n" {
		t.Errorf("unexpected stream body %q", data)
	}
}

func TestClient_DoStream_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	client := New(nil, Config{ProviderName: "test", BaseURL: server.URL}, nil)
	_, err := client.DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/stream"})

	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) || gwErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 provider error, got %v", err)
	}
}

func TestClient_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(nil, Config{ProviderName: "test", BaseURL: server.URL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Do(ctx, Request{Method: http.MethodGet}, nil)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		t.Errorf("context errors must not be classified here, got %s", gwErr.Type)
	}
}

func TestClient_BaseURL(t *testing.T) {
	client := New(nil, Config{BaseURL: "https://api.example.test/v1"}, nil)
	if client.BaseURL() != "https://api.example.test/v1" {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}
}
