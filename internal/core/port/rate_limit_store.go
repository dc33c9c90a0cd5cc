package port

import (
	"context"
	"time"
)

// RateLimitDecision summarizes one atomic window check.
type RateLimitDecision struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitStore maintains fixed-window counters keyed per (policy, identifier).
// CheckAndIncrement must be atomic with respect to concurrent callers sharing a
// key: the first increment in a window also arms the window's TTL. Under-counting
// (admitting more than the limit) is a correctness bug; brief over-counting is
// tolerable.
type RateLimitStore interface {
	CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
