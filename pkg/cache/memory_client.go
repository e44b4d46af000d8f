package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient keeps entries in process. Used when Redis is unreachable and in tests.
type MemoryClient struct {
	cache *gocache.Cache
}

func NewMemoryClient(cleanupInterval time.Duration) *MemoryClient {
	return &MemoryClient{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, found := c.cache.Get(key)
	if !found {
		return nil, ErrCacheMiss
	}
	b := x.([]byte)
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.cache.Set(key, stored, ttl)
	return nil
}

func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryClient) Close() error {
	c.cache.Flush()
	return nil
}
