package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"llmarena/config"
	"llmarena/internal/providers"
	"llmarena/internal/providers/simulated"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "OPENROUTER_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
	cfg := config.Default()
	cfg.Simulation.EnableErrorSimulation = false
	cfg.Simulation.MaxThinkingTime = 0
	return cfg
}

func testFactory() *providers.ProviderFactory {
	factory := providers.NewProviderFactory()
	factory.Add(simulated.Registration)
	return factory
}

func TestNew_RequiresConfigAndFactory(t *testing.T) {
	if _, err := New(context.Background(), Config{Factory: testFactory()}); err == nil {
		t.Error("expected error for missing app config")
	}
	if _, err := New(context.Background(), Config{AppConfig: config.Default()}); err == nil {
		t.Error("expected error for missing factory")
	}
}

func TestNew_ServesSimulatedModels(t *testing.T) {
	application, err := New(context.Background(), Config{AppConfig: testConfig(t), Factory: testFactory()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = application.Shutdown(context.Background()) }()

	ids := application.Engine().Models().IDs()
	if len(ids) != 5 {
		t.Fatalf("expected the 5 simulated models without live credentials, got %v", ids)
	}

	req := httptest.NewRequest(http.MethodPost, "/completion", strings.NewReader(`{"prompt": "hello", "llm_id": "llm-3"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["llm_id"] != "llm-3" {
		t.Errorf("expected llm_id llm-3, got %v", body["llm_id"])
	}
	if content, _ := body["content"].(string); !strings.HasPrefix(content, "Hello!") {
		t.Errorf("expected greeting template, got %q", content)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	application, err := New(context.Background(), Config{AppConfig: testConfig(t), Factory: testFactory()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := application.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown should be a no-op, got %v", err)
	}
}
