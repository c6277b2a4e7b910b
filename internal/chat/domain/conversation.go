package domain

import (
	"sort"
	"strings"
	"time"

	memberdomain "realtime_chat_service/internal/member/domain"
	"realtime_chat_service/pkg"
)

// ChatType definition conversation type
type ChatType string

const (
	//ChatTypePrivate 1對1
	ChatTypePrivate ChatType = "private"
	//ChatTypeGroup 群組
	ChatTypeGroup ChatType = "group"
)

// LastMessage conversation summary of the newest message
type LastMessage struct {
	MessageID string    `bson:"message_id" json:"message_id"`
	Content   string    `bson:"content" json:"content"`
	SenderID  string    `bson:"sender_id" json:"sender_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Conversation definition chat conversation
type Conversation struct {
	ID           string       `bson:"_id" json:"id"`
	Participants []string     `bson:"participants" json:"participants"`
	ChatType     ChatType     `bson:"chat_type" json:"chat_type"`
	Name         string       `bson:"name,omitempty" json:"name,omitempty"`
	Description  string       `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy    string       `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
	LastMessage  *LastMessage `bson:"last_message,omitempty" json:"last_message,omitempty"`
	// PairKey 只有 private 會有, unique sparse index 保證同一組人只有一個 private chat
	PairKey string `bson:"pair_key,omitempty" json:"-"`
}

// ConversationView conversation as seen by one participant
type ConversationView struct {
	*Conversation
	ParticipantsInfo []*memberdomain.Member `json:"participants_info"`
	UnreadCount      int64                  `json:"unread_count"`
}

// PairKey 兩個 member id 排序後以 ":" 串接
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// HasParticipant check member in conversation
func (c *Conversation) HasParticipant(memberID string) bool {
	return pkg.Contains(c.Participants, memberID)
}

// IsCreator check member created the conversation
func (c *Conversation) IsCreator(memberID string) bool {
	return c.CreatedBy == memberID
}
