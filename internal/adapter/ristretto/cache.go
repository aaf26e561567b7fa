// Package ristretto implements the cache port on dgraph-io/ristretto.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is an in-process cache for small values such as repository identity.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache bounded to maxCostBytes of stored values.
func New(maxCostBytes int64) (*Cache, error) {
	counters := maxCostBytes / 100 * 10 // ~10x expected items
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get implements cache.Cache.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value for ttl. The write is flushed before returning so a
// following Get observes it. Ristretto may still refuse admission.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value))+int64(len(key)), ttl)
	c.c.Wait()
	return nil
}

// Delete implements cache.Cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
