// Package cache stores completed live-provider responses by key.
// Supports an in-process backend and Redis for multi-instance deployments.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for completion cache storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A zero ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases any resources held by the cache.
	Close() error
}
