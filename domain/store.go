package domain

import "context"

// ConversationStore appends immutable message records to a conversation's
// history. Call order is persisted order; records are never mutated.
type ConversationStore interface {
	Append(ctx context.Context, conversationID string, msg ConversationMessage) error
	// Messages returns the conversation's records in insertion order.
	Messages(ctx context.Context, conversationID string) ([]ConversationMessage, error)
	// DeleteMessages removes every record a user wrote into a conversation.
	// This is the reset operation of the outer API, not part of the pipeline.
	DeleteMessages(ctx context.Context, conversationID string, userID string) error
}
