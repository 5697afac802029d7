package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"llmarena/config"
	"llmarena/internal/cache"
	"llmarena/internal/core"
	"llmarena/internal/httpclient"
)

// InitResult holds the initialized provider infrastructure.
type InitResult struct {
	Registry *ModelRegistry
	Router   *Router
	Cache    cache.Cache
}

// Close releases the completion cache. Safe to call multiple times.
func (r *InitResult) Close() error {
	if r.Cache == nil {
		return nil
	}
	c := r.Cache
	r.Cache = nil
	return c.Close()
}

// Init builds every backend, the completion cache and the router.
//
// The simulated backend is always created. Live providers are created from
// the resolved provider configs; models whose provider has no backend are
// dropped with a warning. At least one model must remain.
func Init(ctx context.Context, cfg *config.Config, factory *ProviderFactory) (*InitResult, error) {
	return InitWithHTTPClient(ctx, cfg, factory, httpclient.NewDefaultHTTPClient())
}

// InitWithHTTPClient is Init with an explicit client for live providers.
func InitWithHTTPClient(ctx context.Context, cfg *config.Config, factory *ProviderFactory, httpClient *http.Client) (*InitResult, error) {
	if factory == nil {
		return nil, fmt.Errorf("provider factory is required")
	}

	completionCache, err := initCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	deps := Deps{HTTPClient: httpClient, Simulation: cfg.Simulation}
	backends, err := createBackends(cfg, factory, deps, completionCache)
	if err != nil {
		closeCache(completionCache)
		return nil, err
	}

	served, dropped := servedModels(DescriptorsFromConfig(cfg.Models), backends)
	for _, m := range dropped {
		slog.Warn("model disabled: provider not configured", "llm_id", m.ID, "provider", m.Provider)
	}
	if len(served) == 0 {
		closeCache(completionCache)
		return nil, fmt.Errorf("no models available: configure a provider for at least one model")
	}

	registry, err := NewModelRegistry(served)
	if err != nil {
		closeCache(completionCache)
		return nil, err
	}
	router, err := NewRouter(registry, backends)
	if err != nil {
		closeCache(completionCache)
		return nil, err
	}

	slog.Info("model registry ready", "models", registry.ModelCount(), "providers", len(backends))

	return &InitResult{Registry: registry, Router: router, Cache: completionCache}, nil
}

func createBackends(cfg *config.Config, factory *ProviderFactory, deps Deps, c cache.Cache) (map[string]core.Backend, error) {
	backends := make(map[string]core.Backend)

	sim, err := factory.Create(ProviderConfig{Name: core.ProviderSimulated, Type: core.ProviderSimulated}, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulated backend: %w", err)
	}
	backends[core.ProviderSimulated] = sim

	resolved := ResolveProviders(cfg.Providers)
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pCfg := resolved[name]
		b, err := factory.Create(pCfg, deps)
		if err != nil {
			slog.Error("failed to create provider", "provider", name, "type", pCfg.Type, "error", err)
			continue
		}
		if c != nil {
			b = NewCachedBackend(b, c, name, cfg.Cache.TTL)
		}
		backends[name] = b
		slog.Info("provider initialized", "provider", name, "type", pCfg.Type)
	}

	return backends, nil
}

func initCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		slog.Info("using local completion cache", "ttl", cfg.TTL)
		return cache.NewLocalCache(0), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:    cfg.Redis.URL,
			Prefix: cfg.Redis.Key,
			TTL:    cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
}

func closeCache(c cache.Cache) {
	if c != nil {
		_ = c.Close()
	}
}
