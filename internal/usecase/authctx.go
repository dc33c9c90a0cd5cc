package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/security"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
)

// RequestContext is the per-request authentication snapshot. It is built once
// at the transport boundary and never mutated afterwards; handlers read from
// it, they do not write to it.
type RequestContext struct {
	identity *domain.Identity
	session  *domain.Session
	claims   *security.TokenClaims
	loaders  *Loaders
}

// Authenticated reports whether the request carries a live session.
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.session != nil
}

// Identity returns the resolved identity, or nil for anonymous requests.
func (rc *RequestContext) Identity() *domain.Identity {
	if rc == nil {
		return nil
	}
	return rc.identity
}

// Session returns the session snapshot, or nil for anonymous requests.
func (rc *RequestContext) Session() *domain.Session {
	if rc == nil {
		return nil
	}
	return rc.session
}

// Claims returns the decoded token claims, or nil for anonymous requests.
func (rc *RequestContext) Claims() *security.TokenClaims {
	if rc == nil {
		return nil
	}
	return rc.claims
}

// Loaders returns the request-scoped batched loaders.
func (rc *RequestContext) Loaders() *Loaders {
	if rc == nil {
		return nil
	}
	return rc.loaders
}

// HasPermission checks the session's pinned permission snapshot.
func (rc *RequestContext) HasPermission(permission domain.Permission) bool {
	if !rc.Authenticated() {
		return false
	}
	return rc.session.HasPermission(permission)
}

// ContextBuilder turns a raw bearer token into a RequestContext. An empty
// token yields an anonymous context, not an error; a store outage yields a
// ServiceError so the caller fails closed instead of degrading to anonymous.
type ContextBuilder struct {
	codec      *security.Codec
	sessions   port.SessionStore
	identities port.IdentityRepository
	logger     *zap.Logger
	now        func() time.Time

	slidingTTL      time.Duration
	extendThreshold time.Duration
}

// NewContextBuilder constructs a ContextBuilder.
func NewContextBuilder(codec *security.Codec, sessions port.SessionStore, identities port.IdentityRepository, logger *zap.Logger) *ContextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{
		codec:      codec,
		sessions:   sessions,
		identities: identities,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (b *ContextBuilder) WithClock(now func() time.Time) *ContextBuilder {
	b.now = now
	return b
}

// WithSlidingExtension resets a session's TTL back to ttl whenever a request
// arrives with less than threshold of validity remaining. Extension is
// best-effort: a failed extend never fails the request.
func (b *ContextBuilder) WithSlidingExtension(ttl, threshold time.Duration) *ContextBuilder {
	b.slidingTTL = ttl
	b.extendThreshold = threshold
	return b
}

// Build resolves the request context for the given raw token.
func (b *ContextBuilder) Build(ctx context.Context, rawToken string) (*RequestContext, error) {
	loaders := newLoaders(b.identities)

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return &RequestContext{loaders: loaders}, nil
	}

	claims, err := b.codec.Decode(rawToken)
	if err != nil {
		return nil, err
	}

	session, err := b.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		// Store outage. Never fall through to anonymous here.
		return nil, err
	}
	// Expiry is governed by the store's TTL: a record still present is live
	// even when a prior extend has pushed the TTL past the recorded expiry.
	if session == nil {
		return nil, domain.NewAuthenticationError("session expired or revoked")
	}

	now := b.now()
	if b.slidingTTL > 0 && b.extendThreshold > 0 && session.ExpiresAt.Sub(now) < b.extendThreshold {
		if err := b.sessions.Extend(ctx, session.ID, b.slidingTTL); err != nil {
			b.logger.Warn("session extend failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		} else {
			session.ExpiresAt = now.Add(b.slidingTTL)
		}
	}

	identity, err := loaders.Identity(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewAuthenticationError("identity no longer active")
		}
		return nil, err
	}

	return &RequestContext{
		identity: identity,
		session:  session,
		claims:   claims,
		loaders:  loaders,
	}, nil
}
