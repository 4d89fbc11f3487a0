package domain

import (
	"context"
	"time"
)

// EventBroker fans pipeline events out to in-process subscribers, such as the
// websocket feed. Publishing is best-effort from the pipeline's point of
// view: a full or closed broker never fails a request.
type EventBroker interface {
	// Publish sends an event to a topic with a routing key.
	Publish(ctx context.Context, topic string, routingKey string, payload []byte) error

	// Subscribe listens for events on a topic and routing key.
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan Event, error)

	// Close closes the broker and all subscriptions.
	Close() error
}

// Event is one delivered broker message.
type Event struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}

// ExchangeEvent announces one completed user/assistant exchange. Persisted is
// false when the reply was delivered but one of the two appends failed.
type ExchangeEvent struct {
	ConversationID string    `json:"conversation_id"`
	PersonaID      string    `json:"persona_id"`
	UserID         string    `json:"user_id"`
	Prompt         string    `json:"prompt"`
	Reply          string    `json:"reply"`
	Persisted      bool      `json:"persisted"`
	Timestamp      time.Time `json:"timestamp"`
}
