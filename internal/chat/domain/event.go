package domain

import "time"

// EventType chat event stream type
type EventType string

const (
	// EventMessageCreated message persisted
	EventMessageCreated EventType = "message.created"
	// EventMessageRead message read
	EventMessageRead EventType = "message.read"
	// EventMessageDelivered message delivered
	EventMessageDelivered EventType = "message.delivered"
	// EventConversationCreated conversation created
	EventConversationCreated EventType = "conversation.created"
)

// Event chat event, keyed by ChatID on the stream
type Event struct {
	ID           string        `json:"id"`
	Type         EventType     `json:"type"`
	ChatID       string        `json:"chat_id"`
	ActorID      string        `json:"actor_id"`
	MessageID    string        `json:"message_id,omitempty"`
	Message      *Message      `json:"message,omitempty"`
	Conversation *Conversation `json:"conversation,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}
