package repository

import (
	"context"
	"fmt"

	"realtime_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 發布 payload 到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

// PSubscribe 以 pattern 訂閱, 收到訊息後呼叫 handler, 直到 ctx 結束
func (r *RedisPubSub) PSubscribe(ctx context.Context, pattern string, handler func(channel string, payload []byte)) error {
	sub := r.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	// 等待訂閱確認
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	logger.Log.Info("redis psubscribe", zap.String("pattern", pattern))

	ch := sub.Channel()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			handler(m.Channel, []byte(m.Payload))
		case <-ctx.Done():
			logger.Log.Info("redis psubscribe closed", zap.String("pattern", pattern))
			return nil
		}
	}
}
