package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/companionkit/agentic/domain"
	"github.com/companionkit/agentic/utils/log"
)

// ChannelBroker implements domain.EventBroker on buffered Go channels. One
// channel per topic/routing-key pair; delivery is within-process only.
type ChannelBroker struct {
	topics map[string]chan domain.Event
	mu     sync.Mutex
	closed bool
}

func NewChannelBroker() *ChannelBroker {
	return &ChannelBroker{
		topics: make(map[string]chan domain.Event),
	}
}

func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// Publish delivers an event to the subscribers of the routing key and of the
// topic-wide subscription (empty routing key). Channels exist only while a
// Subscribe created them; a publish with no subscribers drops the event
// rather than buffering it into a channel nobody drains. Delivery never
// blocks: a full subscriber loses the event while the others are still
// served, so one stalled consumer cannot starve the rest.
func (b *ChannelBroker) Publish(ctx context.Context, topic string, routingKey string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event broker is closed")
	}
	var channels []chan domain.Event
	if channel, ok := b.topics[makeKey(topic, routingKey)]; ok {
		channels = append(channels, channel)
	}
	if routingKey != "" {
		if wide, ok := b.topics[makeKey(topic, "")]; ok {
			channels = append(channels, wide)
		}
	}
	b.mu.Unlock()

	event := domain.Event{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    payload,
		Timestamp:  time.Now(),
	}

	var errFull error
	for _, channel := range channels {
		select {
		case channel <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			errFull = fmt.Errorf("topic channel is full: %s:%s", topic, routingKey)
		}
	}
	if errFull != nil {
		return errFull
	}

	log.WithCtx(ctx).Debug("event published",
		zap.String("topic", topic),
		zap.String("routing_key", routingKey),
		zap.Int("payload_size", len(payload)))
	return nil
}

func (b *ChannelBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("event broker is closed")
	}

	channel := b.channelLocked(topic, routingKey)
	log.WithCtx(ctx).Info("subscribed to topic",
		zap.String("topic", topic), zap.String("routing_key", routingKey))
	return channel, nil
}

// channelLocked returns the channel for the key, creating it if needed.
// Callers must hold b.mu.
func (b *ChannelBroker) channelLocked(topic, routingKey string) chan domain.Event {
	key := makeKey(topic, routingKey)
	channel, ok := b.topics[key]
	if !ok {
		channel = make(chan domain.Event, 100)
		b.topics[key] = channel
	}
	return channel
}

func (b *ChannelBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, channel := range b.topics {
		close(channel)
	}
	b.topics = make(map[string]chan domain.Event)

	log.With().Info("event broker closed")
	return nil
}

var _ domain.EventBroker = (*ChannelBroker)(nil)
