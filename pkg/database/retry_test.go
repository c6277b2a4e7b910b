package database

import (
	"errors"
	"testing"

	"realtime_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestWithRetry(t *testing.T) {
	logger.SetNewNop()
	refused := errors.New("connection refused")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := withRetry("db", 3, 0, func() error {
			calls++
			if calls < 3 {
				return refused
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up and keeps the last error", func(t *testing.T) {
		calls := 0
		err := withRetry("db", 2, 0, func() error {
			calls++
			return refused
		})
		assert.ErrorIs(t, err, refused)
		assert.Contains(t, err.Error(), "gave up after 2 attempts")
		assert.Equal(t, 2, calls)
	})

	t.Run("zero count still tries once", func(t *testing.T) {
		calls := 0
		_ = withRetry("db", 0, 0, func() error {
			calls++
			return refused
		})
		assert.Equal(t, 1, calls)
	})
}

func TestConnectStrings(t *testing.T) {
	assert.Equal(t, "mongodb://localhost:27017", MongoURI("localhost", 27017, "", ""))
	assert.Equal(t, "mongodb://u:p@mongo:27017", MongoURI("mongo", 27017, "u", "p"))
	assert.Equal(t, "postgres://u:p@pg:5432/chat?sslmode=disable", PostgresDSN("pg", 5432, "u", "p", "chat"))
}
