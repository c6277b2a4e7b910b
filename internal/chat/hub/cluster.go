package hub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const (
	conversationChannelPrefix = "chat:conversation:"
	publishTimeout            = 2 * time.Second
)

// Broadcaster fan-out seen by the use cases
type Broadcaster interface {
	Broadcast(chatID string, payload []byte) int
	SendToUser(userID string, payload []byte) error
}

// Relay cross-process pub/sub
type Relay interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	PSubscribe(ctx context.Context, pattern string, handler func(channel string, payload []byte)) error
}

type envelope struct {
	Node    string          `json:"node"`
	ChatID  string          `json:"chat_id"`
	Payload json.RawMessage `json:"payload"`
}

// ClusterBroadcaster local broadcast plus relay to the other nodes
type ClusterBroadcaster struct {
	local  *Registry
	relay  Relay
	nodeID string
}

// NewClusterBroadcaster create ClusterBroadcaster
func NewClusterBroadcaster(local *Registry, relay Relay, nodeID string) *ClusterBroadcaster {
	return &ClusterBroadcaster{
		local:  local,
		relay:  relay,
		nodeID: nodeID,
	}
}

// ConversationChannel relay channel of a conversation
func ConversationChannel(chatID string) string {
	return conversationChannelPrefix + chatID
}

// Broadcast deliver locally then publish for the other nodes, returns the local count
func (c *ClusterBroadcaster) Broadcast(chatID string, payload []byte) int {
	n := c.local.Broadcast(chatID, payload)

	data, err := json.Marshal(envelope{Node: c.nodeID, ChatID: chatID, Payload: payload})
	if err != nil {
		logger.Log.Error("relay marshal envelope", zap.String("chat_id", chatID), zap.Error(err))
		return n
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := c.relay.Publish(ctx, ConversationChannel(chatID), data); err != nil {
		logger.Log.Error("relay publish", zap.String("chat_id", chatID), zap.Error(err))
	}
	return n
}

// SendToUser only reaches users bound on this node
func (c *ClusterBroadcaster) SendToUser(userID string, payload []byte) error {
	return c.local.SendToUser(userID, payload)
}

// Run subscribe to every conversation channel until ctx is done
func (c *ClusterBroadcaster) Run(ctx context.Context) error {
	return c.relay.PSubscribe(ctx, conversationChannelPrefix+"*", c.handle)
}

func (c *ClusterBroadcaster) handle(channel string, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Log.Warn("relay bad envelope", zap.String("channel", channel), zap.Error(err))
		return
	}
	// 自己發出的已經在本地送過
	if env.Node == c.nodeID {
		return
	}
	if env.ChatID == "" {
		env.ChatID = strings.TrimPrefix(channel, conversationChannelPrefix)
	}
	c.local.Broadcast(env.ChatID, env.Payload)
}
