package domain

import "time"

// MessageType definition message content type
type MessageType string

const (
	// MessageTypeText 文字
	MessageTypeText MessageType = "text"
	// MessageTypeImage 圖片
	MessageTypeImage MessageType = "image"
	// MessageTypeFile 檔案
	MessageTypeFile MessageType = "file"
	// MessageTypeVoice 語音
	MessageTypeVoice MessageType = "voice"
	// MessageTypeSystem 系統訊息, 只能由 server 產生
	MessageTypeSystem MessageType = "system"
)

// Valid known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVoice, MessageTypeSystem:
		return true
	}
	return false
}

// MessageStatus definition delivery state
type MessageStatus string

const (
	// MessageStatusSent 已送出
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered 已送達
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead 已讀
	MessageStatusRead MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return 0
}

// CanAdvanceTo status only moves forward: sent -> delivered -> read
func (s MessageStatus) CanAdvanceTo(to MessageStatus) bool {
	return to.rank() > s.rank() && s.rank() > 0
}

// StatusesBefore statuses that may advance to `to`
func StatusesBefore(to MessageStatus) []MessageStatus {
	var from []MessageStatus
	for _, s := range []MessageStatus{MessageStatusSent, MessageStatusDelivered, MessageStatusRead} {
		if s.CanAdvanceTo(to) {
			from = append(from, s)
		}
	}
	return from
}

// FileInfo attachment pointer stored with a file message
type FileInfo struct {
	AttachmentID string `bson:"attachment_id" json:"attachment_id"`
	Name         string `bson:"name" json:"name"`
	Size         int64  `bson:"size" json:"size"`
	ContentType  string `bson:"content_type" json:"content_type"`
	ObjectKey    string `bson:"object_key" json:"-"`
}

// Message 表示一則聊天訊息
type Message struct {
	ID          string        `bson:"_id" json:"id"`
	ChatID      string        `bson:"chat_id" json:"chat_id"`
	SenderID    string        `bson:"sender_id" json:"sender_id"`
	Content     string        `bson:"content" json:"content"`
	MessageType MessageType   `bson:"message_type" json:"message_type"`
	Timestamp   time.Time     `bson:"timestamp" json:"timestamp"`
	Status      MessageStatus `bson:"status" json:"status"`
	ReplyTo     string        `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	File        *FileInfo     `bson:"file,omitempty" json:"file,omitempty"`
}

// Summary conversation summary built from the message
func (m *Message) Summary() LastMessage {
	content := m.Content
	if content == "" && m.File != nil {
		content = m.File.Name
	}
	return LastMessage{
		MessageID: m.ID,
		Content:   content,
		SenderID:  m.SenderID,
		Timestamp: m.Timestamp,
	}
}

// UnreadInfo definition unread by conversation
type UnreadInfo struct {
	ChatID              string    `bson:"_id" json:"chat_id"`
	UnreadCount         int64     `bson:"unread_count" json:"unread_count"`
	LastUnreadTimestamp time.Time `bson:"last_unread_timestamp" json:"last_unread_timestamp"`
}

// ReadReceipt result of a mark-read
type ReadReceipt struct {
	AlreadyRead bool  `json:"already_read"`
	UnreadCount int64 `json:"unread_count"`
}
