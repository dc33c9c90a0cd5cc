package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
)

const (
	defaultEventPrefix = "events"
	subscriberBuffer   = 64
)

type envelope struct {
	Channel     domain.Channel  `json:"channel"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
}

// Broker multiplexes typed channels over a single Redis pub/sub listener per
// process. In-process registries demultiplex to subscriber queues, so adding a
// subscriber never opens another store connection.
//
// Delivery is at-most-once with no backlog: the broker never buffers beyond
// each subscriber's queue, and a full queue drops the event. Recency beats
// completeness for telemetry-style data.
type Broker struct {
	client *red.Client
	prefix string
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[domain.Channel]map[uint64]*subscription
	nextID uint64
	pubsub *red.PubSub
	closed bool

	done chan struct{}
}

// NewBroker constructs the broker; Start must be called before Subscribe.
func NewBroker(client *red.Client, keyPrefix string, logger *zap.Logger) *Broker {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultEventPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Broker{
		client: client,
		prefix: prefix,
		logger: logger,
		subs:   make(map[domain.Channel]map[uint64]*subscription),
		done:   make(chan struct{}),
	}
}

// Start opens the multiplexed listener and begins dispatching. The supplied
// context bounds the listener's lifetime.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return fmt.Errorf("broker already started")
	}
	if b.closed {
		return fmt.Errorf("broker closed")
	}

	b.pubsub = b.client.Subscribe(ctx)
	go b.dispatch()

	return nil
}

// Publish serializes the event and broadcasts it to every current subscriber
// of the channel. Subscribers joining after the publish never receive it.
func (b *Broker) Publish(ctx context.Context, channel domain.Channel, eventType string, payload any) error {
	if !channel.Valid() {
		return domain.NewValidationError(fmt.Sprintf("unknown channel %q", channel), "channel")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	env := envelope{
		Channel:     channel,
		Type:        eventType,
		Payload:     body,
		PublishedAt: time.Now().UTC(),
	}

	wire, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.wireChannel(channel), wire).Err(); err != nil {
		return domain.NewServiceError("event-bus", "publish failed").WithCause(err)
	}

	return nil
}

// Subscribe registers a queue for the channel. The first subscriber of a
// channel arms the underlying Redis subscription; the last one leaving tears
// it down.
func (b *Broker) Subscribe(channel domain.Channel) (port.Subscription, error) {
	if !channel.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown channel %q", channel), "channel")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.pubsub == nil {
		return nil, fmt.Errorf("broker not running")
	}

	if _, ok := b.subs[channel]; !ok {
		if err := b.pubsub.Subscribe(context.Background(), b.wireChannel(channel)); err != nil {
			return nil, domain.NewServiceError("event-bus", "subscribe failed").WithCause(err)
		}
		b.subs[channel] = make(map[uint64]*subscription)
	}

	b.nextID++
	sub := &subscription{
		broker:  b,
		channel: channel,
		id:      b.nextID,
		events:  make(chan domain.Event, subscriberBuffer),
	}
	b.subs[channel][sub.id] = sub

	return sub, nil
}

// Close tears down every subscription and stops the listener. No delivery
// happens after Close returns.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	for channel, subs := range b.subs {
		for id, sub := range subs {
			close(sub.events)
			delete(subs, id)
		}
		delete(b.subs, channel)
	}

	pubsub := b.pubsub
	b.mu.Unlock()

	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("close pubsub listener: %w", err)
		}
		<-b.done
	}

	return nil
}

// dispatch is the single reader of the multiplexed listener. One goroutine
// receiving and fanning out preserves publish order within each channel.
func (b *Broker) dispatch() {
	defer close(b.done)

	for msg := range b.pubsub.Channel() {
		event := b.decode(msg)

		b.mu.Lock()
		for _, sub := range b.subs[event.Channel] {
			select {
			case sub.events <- event:
			default:
				// Queue full: the subscriber is too slow, drop for it.
			}
		}
		b.mu.Unlock()
	}
}

// decode unwraps the wire envelope. A malformed payload is passed through with
// the raw bytes so consumers can handle both shapes.
func (b *Broker) decode(msg *red.Message) domain.Event {
	channel := b.localChannel(msg.Channel)

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || !env.Channel.Valid() {
		b.logger.Warn("malformed event payload",
			zap.String("channel", string(channel)),
			zap.Int("bytes", len(msg.Payload)),
		)
		return domain.Event{
			Channel:     channel,
			PublishedAt: time.Now().UTC(),
			Raw:         []byte(msg.Payload),
		}
	}

	return domain.Event{
		Channel:     env.Channel,
		Type:        env.Type,
		Payload:     env.Payload,
		PublishedAt: env.PublishedAt,
	}
}

func (b *Broker) wireChannel(channel domain.Channel) string {
	return fmt.Sprintf("%s:%s", b.prefix, channel)
}

func (b *Broker) localChannel(wire string) domain.Channel {
	return domain.Channel(strings.TrimPrefix(wire, b.prefix+":"))
}

func (b *Broker) unsubscribe(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[sub.channel]
	if !ok {
		return
	}
	if _, ok := subs[sub.id]; !ok {
		return
	}

	delete(subs, sub.id)
	close(sub.events)

	if len(subs) == 0 {
		delete(b.subs, sub.channel)
		if b.pubsub != nil {
			if err := b.pubsub.Unsubscribe(context.Background(), b.wireChannel(sub.channel)); err != nil {
				b.logger.Warn("channel unsubscribe failed",
					zap.String("channel", string(sub.channel)),
					zap.Error(err),
				)
			}
		}
	}
}

// subscription owns the consumer-side queue. Drain cadence is decoupled from
// delivery cadence; the broker never blocks on a consumer.
type subscription struct {
	broker  *Broker
	channel domain.Channel
	id      uint64
	events  chan domain.Event
	once    sync.Once
}

// Events yields events in per-channel publish order until Unsubscribe.
func (s *subscription) Events() <-chan domain.Event {
	return s.events
}

// Unsubscribe stops delivery. The registry and queue close are serialized with
// dispatch under the broker mutex, so no event lands after it returns.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
	})
}

var _ port.EventBus = (*Broker)(nil)
