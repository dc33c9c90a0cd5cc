package port

import (
	"context"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// AuditPublisher emits access-control lifecycle events to the audit stream.
// Publishing is fire-and-forget from the caller's perspective; failures are
// logged, never surfaced to the authenticating client.
type AuditPublisher interface {
	PublishSessionCreated(ctx context.Context, event domain.SessionCreatedEvent) error
	PublishSessionRefreshed(ctx context.Context, event domain.SessionRefreshedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishRateLimitBreach(ctx context.Context, event domain.RateLimitBreachEvent) error
}
