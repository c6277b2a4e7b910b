package domain

import "encoding/json"

// FrameType websocket frame type
type FrameType string

// client -> server
const (
	// FrameMessage send a message
	FrameMessage FrameType = "message"
	// FrameRead mark a message read
	FrameRead FrameType = "read"
	// FrameDelivered mark a message delivered
	FrameDelivered FrameType = "delivered"
	// FramePing application ping
	FramePing FrameType = "ping"
)

// server -> client
const (
	// FrameConnected join accepted
	FrameConnected FrameType = "connected"
	// FrameNewMessage fan-out of a persisted message
	FrameNewMessage FrameType = "new_message"
	// FrameMessageRead read receipt
	FrameMessageRead FrameType = "message_read"
	// FrameMessageDelivered delivery receipt
	FrameMessageDelivered FrameType = "message_delivered"
	// FrameUserStatus presence change
	FrameUserStatus FrameType = "user_status"
	// FrameChatCreated sent to the other participants' current socket
	FrameChatCreated FrameType = "chat_created"
	// FramePong reply to ping
	FramePong FrameType = "pong"
	// FrameError inbound frame failed, connection stays open
	FrameError FrameType = "error"
)

// websocket close codes
const (
	// CloseMissingToken no credential
	CloseMissingToken = 4001
	// CloseInvalidToken bad or expired credential
	CloseInvalidToken = 4002
	// CloseNotParticipant not a participant of the conversation
	CloseNotParticipant = 4003
)

// InboundFrame client frame
type InboundFrame struct {
	Type        FrameType   `json:"type"`
	Content     string      `json:"content,omitempty"`
	MessageType MessageType `json:"message_type,omitempty"`
	ReplyTo     string      `json:"reply_to,omitempty"`
	MessageID   string      `json:"message_id,omitempty"`
}

// ConnectedFrame {type:"connected"}
type ConnectedFrame struct {
	Type   FrameType `json:"type"`
	ChatID string    `json:"chat_id"`
	UserID string    `json:"user_id"`
}

// NewMessageFrame {type:"new_message", message}
type NewMessageFrame struct {
	Type    FrameType `json:"type"`
	Message *Message  `json:"message"`
}

// ReceiptFrame message_read / message_delivered
type ReceiptFrame struct {
	Type      FrameType `json:"type"`
	ChatID    string    `json:"chat_id"`
	MessageID string    `json:"message_id"`
	ReaderID  string    `json:"reader_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
}

// UserStatusFrame presence
type UserStatusFrame struct {
	Type   FrameType `json:"type"`
	UserID string    `json:"user_id"`
	Status string    `json:"status"`
}

// ChatCreatedFrame {type:"chat_created", chat}
type ChatCreatedFrame struct {
	Type FrameType     `json:"type"`
	Chat *Conversation `json:"chat"`
}

// ErrorFrame {type:"error", code, message}
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// PongFrame {type:"pong"}
type PongFrame struct {
	Type FrameType `json:"type"`
}

// EncodeFrame frames only contain json-safe fields
func EncodeFrame(frame interface{}) []byte {
	b, err := json.Marshal(frame)
	if err != nil {
		b, _ = json.Marshal(ErrorFrame{Type: FrameError, Code: "internal_error", Message: "encode frame"})
	}
	return b
}
