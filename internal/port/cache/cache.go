// Package cache defines the port interface for the in-process cache.
package cache

import (
	"context"
	"time"
)

// Cache stores small byte values with a TTL. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetOrLoad returns the cached string for key, or calls load and caches its
// result for ttl. Load errors are not cached. A nil Cache always loads.
func GetOrLoad(ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (string, error)) (string, error) {
	if c != nil {
		if v, ok, err := c.Get(ctx, key); err == nil && ok {
			return string(v), nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return "", err
	}
	if c != nil {
		_ = c.Set(ctx, key, []byte(v), ttl)
	}
	return v, nil
}
