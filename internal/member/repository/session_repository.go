package repository

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/member/domain"
	"realtime_chat_service/pkg/database"
)

// ErrSessionNotFound session expired or revoked
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository 登入 session, 存放於 redis
type SessionRepository interface {
	CreateSession(ctx context.Context, session domain.MemberSession, ttl time.Duration) error
	FindSession(ctx context.Context, sessionID string) (domain.MemberSession, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

type sessionRepository struct {
	redis database.RedisRepository[domain.MemberSession]
}

// NewSessionRepository create a SessionRepository
func NewSessionRepository(redis database.RedisRepository[domain.MemberSession]) SessionRepository {
	return &sessionRepository{redis: redis}
}

func sessionKey(sessionID string) string {
	return "member:session:" + sessionID
}

func (r *sessionRepository) CreateSession(ctx context.Context, s domain.MemberSession, ttl time.Duration) error {
	return r.redis.Set(ctx, sessionKey(s.SessionID), s, ttl)
}

func (r *sessionRepository) FindSession(ctx context.Context, sessionID string) (domain.MemberSession, error) {
	s, err := r.redis.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, database.ErrRedisNil) {
		return s, ErrSessionNotFound
	}
	return s, err
}

func (r *sessionRepository) ExpireSession(ctx context.Context, sessionID string) error {
	return r.redis.Del(ctx, sessionKey(sessionID))
}
