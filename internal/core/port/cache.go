package port

import (
	"context"
	"time"
)

// Cache is the shared response/entity cache living in the cache: namespace.
// Pattern-based bulk invalidation operates within that namespace only.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, key string) error

	// InvalidatePattern deletes every cache entry whose key matches the glob
	// pattern and returns the number removed.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
}
