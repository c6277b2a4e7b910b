package app

import (
	"context"
	"errors"

	"realtime_chat_service/internal/member/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/token"

	"go.uber.org/zap"
)

// IdentityGuard 驗證 token 與 session, 回傳 member id
type IdentityGuard struct {
	sessionRepo repository.SessionRepository
}

// NewIdentityGuard create IdentityGuard
func NewIdentityGuard(sessionRepo repository.SessionRepository) *IdentityGuard {
	return &IdentityGuard{sessionRepo: sessionRepo}
}

// Authenticate credential -> member id
// ErrTokenExpired for an expired token, ErrUnauthenticated for anything else invalid or revoked
func (g *IdentityGuard) Authenticate(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", errprocess.New(errprocess.ErrUnauthenticated, "missing token")
	}

	claims, err := token.ParseJWTWrapper(credential)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", errprocess.ErrTokenExpired
		}
		logger.Log.Debug("authenticate parse token", zap.Error(err))
		return "", errprocess.ErrUnauthenticated
	}

	session, err := g.sessionRepo.FindSession(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", errprocess.New(errprocess.ErrUnauthenticated, "session expired")
		}
		return "", errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if session.MemberID != claims.MemberID() {
		return "", errprocess.ErrUnauthenticated
	}

	return claims.MemberID(), nil
}
