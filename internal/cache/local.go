package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultLocalTTL applies when Set is called with a zero ttl.
const DefaultLocalTTL = 10 * time.Minute

// DefaultLocalMaxEntries bounds the in-process cache size.
const DefaultLocalMaxEntries = 1024

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// LocalCache implements Cache in process memory.
// This is suitable for single-instance deployments.
type LocalCache struct {
	mu         sync.RWMutex
	entries    map[string]localEntry
	maxEntries int
	now        func() time.Time
}

// NewLocalCache creates an in-memory cache holding at most maxEntries values.
// A non-positive maxEntries uses DefaultLocalMaxEntries.
func NewLocalCache(maxEntries int) *LocalCache {
	if maxEntries <= 0 {
		maxEntries = DefaultLocalMaxEntries
	}
	return &LocalCache{
		entries:    make(map[string]localEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the stored value if it has not expired.
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a copy of value. When full, expired entries are dropped first,
// then an arbitrary entry.
func (c *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLocalTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = localEntry{value: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *LocalCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op for local cache.
func (c *LocalCache) Close() error {
	return nil
}
