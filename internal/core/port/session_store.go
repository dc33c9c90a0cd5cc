package port

import (
	"context"
	"time"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// SessionStore is the durable, TTL-bound keeper of session records. The store's
// copy is the single source of truth; callers never mutate and write back a
// cached session without revalidating its TTL.
type SessionStore interface {
	// Create persists a new session under a generated id with the supplied TTL.
	Create(ctx context.Context, identity domain.Identity, permissions []domain.Permission, ttl time.Duration) (*domain.Session, error)

	// Get returns the session or (nil, nil) when it is expired or never existed;
	// callers must treat both identically. A store outage yields a ServiceError
	// so authentication fails closed rather than degrading to anonymous.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Extend resets the store-side TTL without altering any stored field, so
	// an extended session can outlive its recorded expiry; presence in the
	// store is what decides liveness. Extending a missing session is a no-op.
	Extend(ctx context.Context, sessionID string, ttl time.Duration) error

	// Delete invalidates the session ahead of its natural TTL.
	Delete(ctx context.Context, sessionID string) error
}
