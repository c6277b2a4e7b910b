package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRelay in-process pub/sub shared by several nodes
type memoryRelay struct {
	mu       sync.Mutex
	handlers []func(channel string, payload []byte)
	ready    chan struct{}
}

func newMemoryRelay() *memoryRelay {
	return &memoryRelay{ready: make(chan struct{}, 16)}
}

func (m *memoryRelay) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	handlers := append([]func(string, []byte){}, m.handlers...)
	m.mu.Unlock()
	for _, h := range handlers {
		h(channel, payload)
	}
	return nil
}

func (m *memoryRelay) PSubscribe(ctx context.Context, _ string, handler func(channel string, payload []byte)) error {
	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	m.mu.Unlock()
	m.ready <- struct{}{}
	<-ctx.Done()
	return nil
}

func TestClusterBroadcasterRelaysToOtherNodes(t *testing.T) {
	relay := newMemoryRelay()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	regA := newTestRegistry()
	regB := newTestRegistry()
	nodeA := NewClusterBroadcaster(regA, relay, "node-a")
	nodeB := NewClusterBroadcaster(regB, relay, "node-b")

	go func() { _ = nodeA.Run(ctx) }()
	go func() { _ = nodeB.Run(ctx) }()
	for i := 0; i < 2; i++ {
		select {
		case <-relay.ready:
		case <-time.After(time.Second):
			t.Fatal("relay subscribe timeout")
		}
	}

	onA := newFakeConn("a1", "alice")
	onB := newFakeConn("b1", "bob")
	require.NoError(t, regA.Subscribe(ctx, "chat-1", onA))
	require.NoError(t, regB.Subscribe(ctx, "chat-1", onB))

	n := nodeA.Broadcast("chat-1", []byte(`{"type":"new_message"}`))
	assert.Equal(t, 1, n)

	// node A 不會重複收到自己的訊息
	assert.Len(t, onA.frames(), 1)
	require.Len(t, onB.frames(), 1)
	assert.JSONEq(t, `{"type":"new_message"}`, string(onB.frames()[0]))
}

func TestClusterBroadcasterIgnoresBadEnvelope(t *testing.T) {
	reg := newTestRegistry()
	node := NewClusterBroadcaster(reg, newMemoryRelay(), "node-a")
	conn := newFakeConn("a1", "alice")
	require.NoError(t, reg.Subscribe(context.Background(), "chat-1", conn))

	node.handle(ConversationChannel("chat-1"), []byte("not json"))
	assert.Empty(t, conn.frames())

	node.handle(ConversationChannel("chat-1"), []byte(`{"node":"node-b","payload":{"type":"x"}}`))
	assert.Len(t, conn.frames(), 1)
}
