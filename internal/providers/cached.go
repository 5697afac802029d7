package providers

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"llmarena/internal/cache"
	"llmarena/internal/core"
)

// CachedBackend memoizes successful Complete calls of a live backend.
// Streams always reach the wrapped backend.
type CachedBackend struct {
	inner    core.Backend
	cache    cache.Cache
	provider string
	ttl      time.Duration
}

// NewCachedBackend wraps inner. provider namespaces the keys.
func NewCachedBackend(inner core.Backend, c cache.Cache, provider string, ttl time.Duration) *CachedBackend {
	return &CachedBackend{inner: inner, cache: c, provider: provider, ttl: ttl}
}

// cacheKey hashes provider, model and prompt with NUL separators.
func cacheKey(provider, modelID, prompt string) string {
	d := xxhash.New()
	_, _ = d.WriteString(provider)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(modelID)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(prompt)
	return modelID + ":" + strconv.FormatUint(d.Sum64(), 16)
}

func (b *CachedBackend) Complete(ctx context.Context, model core.ModelDescriptor, prompt string) (string, error) {
	key := cacheKey(b.provider, model.ID, prompt)
	log := core.Logger(ctx)

	if data, ok, err := b.cache.Get(ctx, key); err != nil {
		log.Warn("completion cache read failed", "llm_id", model.ID, "error", err)
	} else if ok {
		log.Debug("completion cache hit", "llm_id", model.ID)
		return string(data), nil
	}

	content, err := b.inner.Complete(ctx, model, prompt)
	if err != nil {
		return "", err
	}

	if err := b.cache.Set(ctx, key, []byte(content), b.ttl); err != nil {
		log.Warn("completion cache write failed", "llm_id", model.ID, "error", err)
	}
	return content, nil
}

func (b *CachedBackend) Stream(ctx context.Context, model core.ModelDescriptor, prompt string, pacing time.Duration) (core.FragmentStream, error) {
	return b.inner.Stream(ctx, model, prompt, pacing)
}
