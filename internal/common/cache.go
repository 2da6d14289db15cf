package common

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache stores serialized query results under logical keys. Writers invalidate the keys
// their change affects before reporting success.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, keys ...string) error
	InvalidateAll(ctx context.Context) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	*cache.Cache
}

func NewCache(expirationTime, cleanupTime time.Duration) *MemoryCache {
	return &MemoryCache{cache.New(expirationTime, cleanupTime)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.Cache.Get(key)
	if !ok {
		return nil, false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}

	return b, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.Cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.Cache.Delete(key)
	}
	return nil
}

func (c *MemoryCache) InvalidateAll(_ context.Context) error {
	c.Cache.Flush()
	return nil
}

// Fetch is a read-through helper. Hits are decoded into T; misses call load and store the
// encoded result. A cache that fails to answer is treated as a miss.
func Fetch[T any](ctx context.Context, c Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if b, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if b, err := json.Marshal(v); err == nil {
		_ = c.Set(ctx, key, b)
	}

	return v, nil
}

const CacheKeyAllBlogs = "blogs:all"

func CacheKeyBlog(id string) string {
	return "blog:" + id
}

func CacheKeyUser(id string) string {
	return "user:" + id
}
