package app

import (
	"context"
	"time"

	"realtime_chat_service/internal/member/domain"

	"github.com/stretchr/testify/mock"
)

// MockMemberRepo Mock MemberRepository
type MockMemberRepo struct {
	mock.Mock
}

// EnsureSchema mock
func (m *MockMemberRepo) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateUser mock
func (m *MockMemberRepo) CreateUser(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

// UpdateMemberStatus mock
func (m *MockMemberRepo) UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus, lastSeen time.Time) error {
	args := m.Called(ctx, memberID, status, lastSeen)
	return args.Error(0)
}

// FindByMember mock
func (m *MockMemberRepo) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	args := m.Called(ctx, memberQuery)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByIDs mock
func (m *MockMemberRepo) FindByIDs(ctx context.Context, memberIDs []string) ([]*domain.Member, error) {
	args := m.Called(ctx, memberIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// Search mock
func (m *MockMemberRepo) Search(ctx context.Context, keyword string, excludeID string, limit int) ([]*domain.Member, error) {
	args := m.Called(ctx, keyword, excludeID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSessionRepo Mock SessionRepository
type MockSessionRepo struct {
	mock.Mock
}

// CreateSession mock
func (m *MockSessionRepo) CreateSession(ctx context.Context, session domain.MemberSession, ttl time.Duration) error {
	args := m.Called(ctx, session, ttl)
	return args.Error(0)
}

// FindSession mock
func (m *MockSessionRepo) FindSession(ctx context.Context, sessionID string) (domain.MemberSession, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.MemberSession), args.Error(1)
}

// ExpireSession mock
func (m *MockSessionRepo) ExpireSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
