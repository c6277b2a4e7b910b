package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("b", "a"), PairKey("a", "b"))
	assert.Equal(t, "a:b", PairKey("b", "a"))
}

func TestStatusMonotonic(t *testing.T) {
	assert.True(t, MessageStatusSent.CanAdvanceTo(MessageStatusDelivered))
	assert.True(t, MessageStatusSent.CanAdvanceTo(MessageStatusRead))
	assert.True(t, MessageStatusDelivered.CanAdvanceTo(MessageStatusRead))

	assert.False(t, MessageStatusRead.CanAdvanceTo(MessageStatusDelivered))
	assert.False(t, MessageStatusRead.CanAdvanceTo(MessageStatusRead))
	assert.False(t, MessageStatusDelivered.CanAdvanceTo(MessageStatusSent))

	assert.ElementsMatch(t, []MessageStatus{MessageStatusSent, MessageStatusDelivered}, StatusesBefore(MessageStatusRead))
	assert.ElementsMatch(t, []MessageStatus{MessageStatusSent}, StatusesBefore(MessageStatusDelivered))
}

func TestMessageSummaryFallsBackToFileName(t *testing.T) {
	ts := time.Now().UTC()
	m := &Message{ID: "m1", SenderID: "u1", Timestamp: ts, File: &FileInfo{Name: "a.png"}}
	s := m.Summary()
	assert.Equal(t, "a.png", s.Content)
	assert.Equal(t, ts, s.Timestamp)
}

func TestConversationViewJSON(t *testing.T) {
	view := ConversationView{
		Conversation: &Conversation{ID: "c1", ChatType: ChatTypePrivate, PairKey: "a:b", Participants: []string{"a", "b"}},
		UnreadCount:  2,
	}
	b, err := json.Marshal(view)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "c1", out["id"])
	assert.EqualValues(t, 2, out["unread_count"])
	assert.NotContains(t, out, "pair_key")
}

func TestEncodeFrame(t *testing.T) {
	b := EncodeFrame(ErrorFrame{Type: FrameError, Code: "not_found", Message: "not found"})
	assert.JSONEq(t, `{"type":"error","code":"not_found","message":"not found"}`, string(b))
}
