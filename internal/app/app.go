// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the llmarena server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"llmarena/config"
	"llmarena/internal/engine"
	"llmarena/internal/observability"
	"llmarena/internal/providers"
	"llmarena/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config    *config.Config
	providers *providers.InitResult
	engine    *engine.Orchestrator
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded and validated application configuration.
	AppConfig *config.Config

	// Factory provides the ProviderFactory used to construct backends.
	Factory *providers.ProviderFactory

	// Hooks receives engine metrics events. Nil disables them.
	Hooks observability.Hooks
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("factory is required")
	}

	appCfg := cfg.AppConfig
	app := &App{
		config: appCfg,
	}

	providerResult, err := providers.Init(ctx, appCfg, cfg.Factory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	app.providers = providerResult

	hooks := cfg.Hooks
	if hooks == nil {
		hooks = observability.Noop{}
	}
	app.engine = engine.NewOrchestrator(providerResult.Router, engine.OptionsFromConfig(appCfg, hooks))

	app.logStartupInfo()

	app.server = server.New(app.engine, &server.Config{
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
		CORSOrigins:     appCfg.Server.CORSOrigins,
	})

	return app, nil
}

// Engine returns the orchestrator serving requests.
func (a *App) Engine() *engine.Orchestrator {
	return a.engine
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first, honoring ctx, then the provider subsystem and its
// cache.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step and returns the joined failures.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.providers != nil {
		if err := a.providers.Close(); err != nil {
			slog.Error("providers close error", "error", err)
			errs = append(errs, fmt.Errorf("providers close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("completion cache configured", "type", cfg.Cache.Type)

	if cfg.Simulation.EnableErrorSimulation {
		rates := cfg.Simulation.ErrorRates
		slog.Info("error simulation enabled",
			"rate_limit", rates.RateLimit,
			"timeout", rates.Timeout,
			"service_error", rates.ServiceError,
		)
	} else {
		slog.Info("error simulation disabled")
	}

	slog.Info("request limits",
		"max_prompt_length", cfg.Limits.MaxPromptLength,
		"max_models_per_batch", cfg.Limits.MaxModelsPerBatch,
		"max_delay", cfg.Limits.MaxDelay,
		"backend_timeout", cfg.Limits.BackendTimeout,
	)
	slog.Info("models available", "llm_ids", a.providers.Registry.IDs())
}
