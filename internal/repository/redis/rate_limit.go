package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
)

const defaultLimitPrefix = "ratelimit"

// incrWithWindow increments the counter and arms the window TTL in one atomic
// step, so concurrent callers sharing a key can never under-count. Returns the
// running count and the remaining window in milliseconds.
var incrWithWindow = red.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RateLimitRepository keeps fixed-window counters in the ratelimit: namespace.
// Counters reset exactly at the window boundary via store-side TTL.
type RateLimitRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewRateLimitRepository constructs a repository using the provided Redis client.
func NewRateLimitRepository(client *red.Client, keyPrefix string) *RateLimitRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultLimitPrefix
	}

	return &RateLimitRepository{client: client, prefix: prefix, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (r *RateLimitRepository) WithClock(now func() time.Time) *RateLimitRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// CheckAndIncrement atomically counts the attempt and reports whether the
// running total stays within the limit.
func (r *RateLimitRepository) CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (port.RateLimitDecision, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return port.RateLimitDecision{}, fmt.Errorf("rate limit key is required")
	}
	if limit <= 0 || window <= 0 {
		return port.RateLimitDecision{}, fmt.Errorf("limit and window must be positive")
	}

	raw, err := incrWithWindow.Run(ctx, r.client, []string{r.key(key)}, window.Milliseconds()).Result()
	if err != nil {
		return port.RateLimitDecision{}, domain.NewServiceError("rate-limit-store", "counter update failed").WithCause(err)
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return port.RateLimitDecision{}, domain.NewServiceError("rate-limit-store", "unexpected script reply")
	}

	count64, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	count := int(count64)
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := r.now().Add(window)
	if ttlMillis > 0 {
		resetAt = r.now().Add(time.Duration(ttlMillis) * time.Millisecond)
	}

	return port.RateLimitDecision{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	return fmt.Sprintf("%s:%s", r.prefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
