package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
)

const defaultSessionPrefix = "session"

// SessionRepository keeps session records in Redis under the session: namespace.
// Redis holds the only authoritative copy; expiry is store-side TTL so
// correctness survives process restarts.
type SessionRepository struct {
	client *red.Client
	prefix string
}

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client *red.Client, keyPrefix string) *SessionRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}

	return &SessionRepository{client: client, prefix: prefix}
}

// Create persists a new session with a generated id and the supplied TTL.
func (r *SessionRepository) Create(ctx context.Context, identity domain.Identity, permissions []domain.Permission, ttl time.Duration) (*domain.Session, error) {
	if identity.ID == "" {
		return nil, fmt.Errorf("identity id is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:          uuid.NewString(),
		IdentityID:  identity.ID,
		Role:        identity.Role,
		Permissions: permissions,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(session.ID), payload, ttl).Err(); err != nil {
		return nil, domain.NewServiceError("session-store", "create failed").WithCause(err)
	}

	return session, nil
}

// Get returns the stored session, or (nil, nil) when it is expired or never
// existed. A store outage is surfaced as a ServiceError so callers fail closed.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	payload, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, nil
		}
		return nil, domain.NewServiceError("session-store", "lookup failed").WithCause(err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, domain.NewServiceError("session-store", "corrupt session record").WithCause(err)
	}

	return &session, nil
}

// Extend resets the record's TTL in a single PEXPIRE without rewriting any
// stored field; the TTL, not the recorded expiry, is what decides liveness.
// Extending a missing session is a no-op, which keeps the call idempotent.
func (r *SessionRepository) Extend(ctx context.Context, sessionID string, ttl time.Duration) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := r.client.PExpire(ctx, r.key(sessionID), ttl).Err(); err != nil {
		return domain.NewServiceError("session-store", "extend failed").WithCause(err)
	}

	return nil
}

// Delete invalidates the session ahead of its natural TTL.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return domain.NewServiceError("session-store", "delete failed").WithCause(err)
	}

	return nil
}

func (r *SessionRepository) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, sessionID)
}

var _ port.SessionStore = (*SessionRepository)(nil)
