package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/config"
)

const schemaVersion = "1.0"

// AuditPublisher implements port.AuditPublisher using Kafka.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewAuditPublisher constructs a Kafka-backed audit publisher.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	IdentityID string           `json:"identity_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Version    string           `json:"version"`
	Payload    any              `json:"payload"`
	Metadata   envelopeMetadata `json:"metadata,omitempty"`
}

func (p *AuditPublisher) publish(ctx context.Context, eventID, eventType, identityID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:    id,
		EventType:  eventType,
		IdentityID: identityID,
		Timestamp:  ts.UTC(),
		Version:    schemaVersion,
		Payload:    payload,
		Metadata:   metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionCreated publishes sepulki.session.created events.
func (p *AuditPublisher) PublishSessionCreated(ctx context.Context, event domain.SessionCreatedEvent) error {
	payload := struct {
		SessionID  string    `json:"session_id"`
		IdentityID string    `json:"identity_id"`
		Role       string    `json:"role"`
		IssuedAt   time.Time `json:"issued_at"`
		ExpiresAt  time.Time `json:"expires_at"`
		IPAddress  *string   `json:"ip_address,omitempty"`
		UserAgent  *string   `json:"user_agent,omitempty"`
	}{
		SessionID:  event.SessionID,
		IdentityID: event.IdentityID,
		Role:       string(event.Role),
		IssuedAt:   event.IssuedAt.UTC(),
		ExpiresAt:  event.ExpiresAt.UTC(),
		IPAddress:  event.IP,
		UserAgent:  event.UserAgent,
	}

	return p.publish(ctx, event.EventID, "sepulki.session.created", event.IdentityID, event.IssuedAt, payload)
}

// PublishSessionRefreshed publishes sepulki.session.refreshed events.
func (p *AuditPublisher) PublishSessionRefreshed(ctx context.Context, event domain.SessionRefreshedEvent) error {
	payload := struct {
		OldSessionID string    `json:"old_session_id"`
		NewSessionID string    `json:"new_session_id"`
		IdentityID   string    `json:"identity_id"`
		RefreshedAt  time.Time `json:"refreshed_at"`
		NewExpiresAt time.Time `json:"new_expires_at"`
	}{
		OldSessionID: event.OldSessionID,
		NewSessionID: event.NewSessionID,
		IdentityID:   event.IdentityID,
		RefreshedAt:  event.RefreshedAt.UTC(),
		NewExpiresAt: event.NewExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "sepulki.session.refreshed", event.IdentityID, event.RefreshedAt, payload)
}

// PublishSessionRevoked publishes sepulki.session.revoked events.
func (p *AuditPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID  string    `json:"session_id"`
		IdentityID string    `json:"identity_id"`
		RevokedAt  time.Time `json:"revoked_at"`
		Reason     string    `json:"reason"`
	}{
		SessionID:  event.SessionID,
		IdentityID: event.IdentityID,
		RevokedAt:  event.RevokedAt.UTC(),
		Reason:     event.Reason,
	}

	return p.publish(ctx, event.EventID, "sepulki.session.revoked", event.IdentityID, event.RevokedAt, payload)
}

// PublishRateLimitBreach publishes sepulki.rate_limit.breach events.
func (p *AuditPublisher) PublishRateLimitBreach(ctx context.Context, event domain.RateLimitBreachEvent) error {
	payload := struct {
		Policy     string    `json:"policy"`
		Identifier string    `json:"identifier"`
		Limit      int       `json:"limit"`
		OccurredAt time.Time `json:"occurred_at"`
	}{
		Policy:     event.Policy,
		Identifier: event.Identifier,
		Limit:      event.Limit,
		OccurredAt: event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "sepulki.rate_limit.breach", "", event.OccurredAt, payload)
}

var _ port.AuditPublisher = (*AuditPublisher)(nil)
