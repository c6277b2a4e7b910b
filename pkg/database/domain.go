package database

import (
	"fmt"
	"time"

	"realtime_chat_service/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Connection definition slq setting
type Connection struct {
	ConnectStr string

	RetryCount int
	// RetryInterval 秒數
	RetryInterval time.Duration
}

// MongoDB definition mongo db
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// RedisConnection definition redis, Addr 為空時使用 sentinel
type RedisConnection struct {
	Addr          string
	MasterName    string
	SentinelAddrs []string
	DB            int
}

// MinIOConnection definition minio
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// KafkaConnection definition kafka
type KafkaConnection struct {
	Brokers       []string
	Topic         string
	RetryCount    int
	RetryInterval time.Duration
}

// withRetry 最多呼叫 connect count 次 (至少一次), 每次失敗後等 interval 秒
func withRetry(target string, count int, interval time.Duration, connect func() error) error {
	if count < 1 {
		count = 1
	}

	var err error
	for attempt := 1; attempt <= count; attempt++ {
		if err = connect(); err == nil {
			logger.Log.Info("connected", zap.String("target", target), zap.Int("attempt", attempt))
			return nil
		}
		logger.Log.Warn("connect failed, retrying...",
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Int("max", count),
			zap.Error(err),
		)
		if attempt < count {
			time.Sleep(interval * time.Second)
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", target, count, err)
}
