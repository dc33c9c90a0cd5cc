package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly audit publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, identityID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("identity_id", identityID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionCreated logs sepulki.session.created events.
func (p *StubPublisher) PublishSessionCreated(_ context.Context, event domain.SessionCreatedEvent) error {
	payload := map[string]any{
		"session_id":  event.SessionID,
		"identity_id": event.IdentityID,
		"role":        event.Role,
		"issued_at":   event.IssuedAt,
		"expires_at":  event.ExpiresAt,
		"ip_address":  event.IP,
		"user_agent":  event.UserAgent,
	}
	p.logEvent("sepulki.session.created", event.IdentityID, event.IssuedAt, payload)
	return nil
}

// PublishSessionRefreshed logs sepulki.session.refreshed events.
func (p *StubPublisher) PublishSessionRefreshed(_ context.Context, event domain.SessionRefreshedEvent) error {
	payload := map[string]any{
		"old_session_id": event.OldSessionID,
		"new_session_id": event.NewSessionID,
		"identity_id":    event.IdentityID,
		"refreshed_at":   event.RefreshedAt,
		"new_expires_at": event.NewExpiresAt,
	}
	p.logEvent("sepulki.session.refreshed", event.IdentityID, event.RefreshedAt, payload)
	return nil
}

// PublishSessionRevoked logs sepulki.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id":  event.SessionID,
		"identity_id": event.IdentityID,
		"revoked_at":  event.RevokedAt,
		"reason":      event.Reason,
	}
	p.logEvent("sepulki.session.revoked", event.IdentityID, event.RevokedAt, payload)
	return nil
}

// PublishRateLimitBreach logs sepulki.rate_limit.breach events.
func (p *StubPublisher) PublishRateLimitBreach(_ context.Context, event domain.RateLimitBreachEvent) error {
	payload := map[string]any{
		"policy":      event.Policy,
		"identifier":  event.Identifier,
		"limit":       event.Limit,
		"occurred_at": event.OccurredAt,
	}
	p.logEvent("sepulki.rate_limit.breach", "", event.OccurredAt, payload)
	return nil
}

var _ port.AuditPublisher = (*StubPublisher)(nil)
