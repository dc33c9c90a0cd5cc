package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
)

const defaultCachePrefix = "cache"

// CacheRepository is the shared entity/response cache in the cache: namespace.
// Pattern invalidation is confined to that namespace so it can never touch
// sessions or rate-limit counters.
type CacheRepository struct {
	client *red.Client
	prefix string
}

// NewCacheRepository constructs a Redis-backed cache.
func NewCacheRepository(client *red.Client, keyPrefix string) *CacheRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCachePrefix
	}

	return &CacheRepository{client: client, prefix: prefix}
}

// Set stores the value under the cache namespace with the supplied TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return domain.NewServiceError("cache", "set failed").WithCause(err)
	}

	return nil
}

// Get returns the cached value, or (nil, nil) on a miss.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("cache key is required")
	}

	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, nil
		}
		return nil, domain.NewServiceError("cache", "get failed").WithCause(err)
	}

	return value, nil
}

// Delete removes a single cache entry.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("cache key is required")
	}

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return domain.NewServiceError("cache", "delete failed").WithCause(err)
	}

	return nil
}

// InvalidatePattern deletes every cache entry matching the glob pattern within
// the cache namespace and returns the number removed. Uses SCAN rather than
// KEYS so the traversal does not block the store.
func (r *CacheRepository) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, fmt.Errorf("pattern is required")
	}

	removed := 0
	iter := r.client.Scan(ctx, 0, r.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, domain.NewServiceError("cache", "invalidate failed").WithCause(err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, domain.NewServiceError("cache", "scan failed").WithCause(err)
	}

	return removed, nil
}

func (r *CacheRepository) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

var _ port.Cache = (*CacheRepository)(nil)
