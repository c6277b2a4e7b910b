package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"sync"

	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const shardCount = 64

// Connection one live realtime connection bound to a (conversation, user) pair
type Connection interface {
	ID() string
	UserID() string
	// Send must not block; a full buffer or closed connection returns an error
	Send(payload []byte) error
	Close() error
}

// ParticipantChecker conversation membership lookup
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, chatID, memberID string) (bool, error)
}

type bucket struct {
	sync.RWMutex
	convs map[string]map[string]Connection
	users map[string]Connection
}

// Registry conversation subscriptions and user bindings of this process
type Registry struct {
	shards  [shardCount]*bucket
	checker ParticipantChecker
}

// NewRegistry create Registry
func NewRegistry(checker ParticipantChecker) *Registry {
	r := &Registry{checker: checker}
	for i := range r.shards {
		r.shards[i] = &bucket{
			convs: make(map[string]map[string]Connection),
			users: make(map[string]Connection),
		}
	}
	return r
}

func (r *Registry) shard(key string) *bucket {
	if key == "" {
		return r.shards[0]
	}
	h := sha1.Sum([]byte(key))
	return r.shards[binary.BigEndian.Uint32(h[:4])%shardCount]
}

// Subscribe add conn to the conversation set, NotFound when conn's user is not a participant
func (r *Registry) Subscribe(ctx context.Context, chatID string, conn Connection) error {
	ok, err := r.checker.IsParticipant(ctx, chatID, conn.UserID())
	if err != nil {
		return errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if !ok {
		return errprocess.ErrNotFound
	}

	b := r.shard(chatID)
	b.Lock()
	defer b.Unlock()

	set, ok := b.convs[chatID]
	if !ok {
		set = make(map[string]Connection)
		b.convs[chatID] = set
	}
	set[conn.ID()] = conn
	return nil
}

// Unsubscribe remove conn from the conversation set
func (r *Registry) Unsubscribe(chatID string, conn Connection) {
	b := r.shard(chatID)
	b.Lock()
	defer b.Unlock()

	set, ok := b.convs[chatID]
	if !ok {
		return
	}
	if cur, ok := set[conn.ID()]; ok && cur == conn {
		delete(set, conn.ID())
	}
	if len(set) == 0 {
		delete(b.convs, chatID)
	}
}

// BindUser last writer wins, the previous connection is neither closed nor notified
func (r *Registry) BindUser(userID string, conn Connection) {
	b := r.shard(userID)
	b.Lock()
	b.users[userID] = conn
	b.Unlock()
}

// UnbindUser remove the binding only when it still points at conn, reports whether it did
func (r *Registry) UnbindUser(userID string, conn Connection) bool {
	b := r.shard(userID)
	b.Lock()
	defer b.Unlock()

	if cur, ok := b.users[userID]; ok && cur == conn {
		delete(b.users, userID)
		return true
	}
	return false
}

// Broadcast deliver payload to every subscriber of the conversation, returns delivered count
// 送出失敗的連線會被取消訂閱並關閉, 不影響其他連線
func (r *Registry) Broadcast(chatID string, payload []byte) int {
	b := r.shard(chatID)

	// collect under RLock, deliver without the lock
	b.RLock()
	set := b.convs[chatID]
	conns := make([]Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	b.RUnlock()

	delivered := 0
	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			logger.Log.Warn("broadcast send failed, pruning connection",
				zap.String("chat_id", chatID),
				zap.String("conn_id", c.ID()),
				zap.String("user_id", c.UserID()),
				zap.Error(err),
			)
			r.prune(chatID, c)
			continue
		}
		delivered++
	}
	return delivered
}

// SendToUser deliver payload through the user's current binding
func (r *Registry) SendToUser(userID string, payload []byte) error {
	b := r.shard(userID)
	b.RLock()
	conn, ok := b.users[userID]
	b.RUnlock()
	if !ok {
		return errprocess.New(errprocess.ErrNotFound, "user not connected")
	}

	if err := conn.Send(payload); err != nil {
		_ = conn.Close()
		return err
	}
	return nil
}

// prune 只移除訂閱並關閉連線; user 綁定留給連線自己的清理 (UnbindUser 回 true 才會設離線)
func (r *Registry) prune(chatID string, conn Connection) {
	r.Unsubscribe(chatID, conn)
	_ = conn.Close()
}

// SubscriberCount number of live connections of the conversation
func (r *Registry) SubscriberCount(chatID string) int {
	b := r.shard(chatID)
	b.RLock()
	defer b.RUnlock()
	return len(b.convs[chatID])
}

// IsBound whether conn is the user's current binding
func (r *Registry) IsBound(userID string, conn Connection) bool {
	b := r.shard(userID)
	b.RLock()
	defer b.RUnlock()
	cur, ok := b.users[userID]
	return ok && cur == conn
}
