package port

import (
	"context"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// Subscription is the consumer end of a channel registration. The broker owns
// delivery; the consumer owns the queue and drains it at its own cadence.
type Subscription interface {
	// Events yields published events in per-channel publish order. The channel
	// is closed after Unsubscribe returns.
	Events() <-chan domain.Event

	// Unsubscribe stops future delivery. Safe to call concurrently with an
	// in-flight delivery and more than once.
	Unsubscribe()
}

// EventBus is the typed publish/subscribe multiplexer. Delivery is best-effort,
// at-most-once: there is no backlog, no replay, and a subscriber that is slow or
// absent at publish time simply misses the event.
type EventBus interface {
	Publish(ctx context.Context, channel domain.Channel, eventType string, payload any) error
	Subscribe(channel domain.Channel) (Subscription, error)
}
