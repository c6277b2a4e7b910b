package database

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriterWithRetry 確認第一個 broker 可用後建立 Kafka Writer
// Hash balancer: 同 key (chat_id) 落在同一 partition
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}

	err := withRetry("kafka["+k.Brokers[0]+"]", k.RetryCount, k.RetryInterval, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn, err := kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Brokers()
		return err
	})
	if err != nil {
		return nil, err
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(k.Brokers...),
		Topic:                  k.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}, nil
}
