package domain

import "time"

// ChatMessage is a single role-tagged message on the wire to a completion
// backend. Order within a slice is significant.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)

// ConversationMessage is one persisted record of a conversation's history.
// Records are append-only; insertion order is the conversation order.
type ConversationMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// CallerIdentity is the already-authenticated caller, resolved by the HTTP
// layer before the pipeline runs. The core never verifies identity itself.
type CallerIdentity struct {
	UserID   string
	UserName string
}
