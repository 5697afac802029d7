package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Cache = (*LocalCache)(nil)
	_ Cache = (*RedisCache)(nil)
)

func TestLocalCache(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSetRoundTrip", func(t *testing.T) {
		c := NewLocalCache(0)

		_, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, c.Set(ctx, "k", []byte("hello"), time.Minute))

		got, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("ReturnedValueIsACopy", func(t *testing.T) {
		c := NewLocalCache(0)
		value := []byte("abc")
		require.NoError(t, c.Set(ctx, "k", value, time.Minute))
		value[0] = 'x'

		got, _, _ := c.Get(ctx, "k")
		got[1] = 'y'

		again, _, _ := c.Get(ctx, "k")
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Expiry", func(t *testing.T) {
		c := NewLocalCache(0)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
		now = now.Add(999 * time.Millisecond)
		_, ok, _ := c.Get(ctx, "k")
		assert.True(t, ok)

		now = now.Add(time.Millisecond)
		_, ok, _ = c.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("BoundedSize", func(t *testing.T) {
		c := NewLocalCache(3)
		for i := range 10 {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
		}
		assert.LessOrEqual(t, c.Len(), 3)

		_, ok, _ := c.Get(ctx, "k9")
		assert.True(t, ok, "most recent write must survive eviction")
	})

	t.Run("EvictsExpiredFirst", func(t *testing.T) {
		c := NewLocalCache(2)
		now := time.Now()
		c.now = func() time.Time { return now }

		require.NoError(t, c.Set(ctx, "old", []byte("v"), time.Second))
		require.NoError(t, c.Set(ctx, "keep", []byte("v"), time.Hour))
		now = now.Add(2 * time.Second)
		require.NoError(t, c.Set(ctx, "new", []byte("v"), time.Hour))

		_, ok, _ := c.Get(ctx, "keep")
		assert.True(t, ok)
		_, ok, _ = c.Get(ctx, "new")
		assert.True(t, ok)
	})
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisConfig{URL: "not-a-url://"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}

func TestRedisCache_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()

	c := newRedisCache(client, RedisConfig{})
	assert.Equal(t, DefaultRedisPrefix, c.prefix)
	assert.Equal(t, DefaultRedisTTL, c.ttl)
	assert.Equal(t, DefaultRedisPrefix+":abc", c.key("abc"))
}
