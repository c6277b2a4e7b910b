package app

import (
	"context"
	"io"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	memberdomain "realtime_chat_service/internal/member/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// EnsureIndexes mock
func (m *MockConversationRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Create mock
func (m *MockConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// FindByID mock
func (m *MockConversationRepository) FindByID(ctx context.Context, chatID string) (*domain.Conversation, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindPrivate mock
func (m *MockConversationRepository) FindPrivate(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	args := m.Called(ctx, pairKey)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// IsParticipant mock
func (m *MockConversationRepository) IsParticipant(ctx context.Context, chatID, memberID string) (bool, error) {
	args := m.Called(ctx, chatID, memberID)
	return args.Bool(0), args.Error(1)
}

// UpdateSummary mock
func (m *MockConversationRepository) UpdateSummary(ctx context.Context, chatID string, summary domain.LastMessage, ifNewerThan time.Time) (bool, error) {
	args := m.Called(ctx, chatID, summary, ifNewerThan)
	return args.Bool(0), args.Error(1)
}

// ListByParticipant mock
func (m *MockConversationRepository) ListByParticipant(ctx context.Context, memberID string, limit int64) ([]*domain.Conversation, error) {
	args := m.Called(ctx, memberID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateSettings mock
func (m *MockConversationRepository) UpdateSettings(ctx context.Context, chatID string, name, description *string, updatedAt time.Time) error {
	args := m.Called(ctx, chatID, name, description, updatedAt)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// EnsureIndexes mock
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// InsertMessage mock
func (m *MockMessageRepository) InsertMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateStatus mock
func (m *MockMessageRepository) UpdateStatus(ctx context.Context, messageID string, to domain.MessageStatus, allowedFrom []domain.MessageStatus) (int64, error) {
	args := m.Called(ctx, messageID, to, allowedFrom)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnread mock
func (m *MockMessageRepository) CountUnread(ctx context.Context, chatID, viewerID string) (int64, error) {
	args := m.Called(ctx, chatID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnreadByConversation mock
func (m *MockMessageRepository) CountUnreadByConversation(ctx context.Context, viewerID string, chatIDs []string) ([]domain.UnreadInfo, error) {
	args := m.Called(ctx, viewerID, chatIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.UnreadInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByConversation mock
func (m *MockMessageRepository) ListByConversation(ctx context.Context, chatID string, skip, limit int64) ([]*domain.Message, error) {
	args := m.Called(ctx, chatID, skip, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAttachmentRepository Mock AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

// AutoMigrate mock
func (m *MockAttachmentRepository) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}

// Create mock
func (m *MockAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	args := m.Called(ctx, attachment)
	return args.Error(0)
}

// FindByID mock
func (m *MockAttachmentRepository) FindByID(ctx context.Context, id string) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete mock
func (m *MockAttachmentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockObjectStorage Mock database.ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

// PutObject mock, body 會被讀完
func (m *MockObjectStorage) PutObject(ctx context.Context, objectName string, body io.Reader, size int64, contentType string) error {
	_, _ = io.Copy(io.Discard, body)
	args := m.Called(ctx, objectName, size, contentType)
	return args.Error(0)
}

// RemoveObject mock
func (m *MockObjectStorage) RemoveObject(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

// PresignGetURL mock
func (m *MockObjectStorage) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

// MockMemberDirectory Mock MemberDirectory
type MockMemberDirectory struct {
	mock.Mock
}

// FindMember mock
func (m *MockMemberDirectory) FindMember(ctx context.Context, memberID string) (*memberdomain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) != nil {
		return args.Get(0).(*memberdomain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindMembers mock
func (m *MockMemberDirectory) FindMembers(ctx context.Context, memberIDs []string) ([]*memberdomain.Member, error) {
	args := m.Called(ctx, memberIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]*memberdomain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetPresence mock
func (m *MockMemberDirectory) SetPresence(ctx context.Context, memberID string, status memberdomain.MemberStatus) error {
	args := m.Called(ctx, memberID, status)
	return args.Error(0)
}

// MockMessageUseCase Mock MessageUseCase
type MockMessageUseCase struct {
	mock.Mock
}

// SubmitMessage mock
func (m *MockMessageUseCase) SubmitMessage(ctx context.Context, req SubmitMessageReq) (*domain.Message, error) {
	args := m.Called(ctx, req)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListMessages mock
func (m *MockMessageUseCase) ListMessages(ctx context.Context, chatID, viewerID string, skip, limit int64) ([]*domain.Message, error) {
	args := m.Called(ctx, chatID, viewerID, skip, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// RecordingBroadcaster hub.Broadcaster that keeps every frame
type RecordingBroadcaster struct {
	mu     sync.Mutex
	Frames map[string][][]byte
	ToUser map[string][][]byte
}

// NewRecordingBroadcaster create RecordingBroadcaster
func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{
		Frames: map[string][][]byte{},
		ToUser: map[string][][]byte{},
	}
}

// Broadcast record
func (b *RecordingBroadcaster) Broadcast(chatID string, payload []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Frames[chatID] = append(b.Frames[chatID], payload)
	return 1
}

// SendToUser record
func (b *RecordingBroadcaster) SendToUser(userID string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ToUser[userID] = append(b.ToUser[userID], payload)
	return nil
}

// Count frames sent to the conversation
func (b *RecordingBroadcaster) Count(chatID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Frames[chatID])
}

// RecordingPublisher repository.EventPublisher that keeps every event
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []domain.Event
	Err    error
}

// Publish record
func (p *RecordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return p.Err
}

// Close noop
func (p *RecordingPublisher) Close() error { return nil }

// Types event types in publish order
func (p *RecordingPublisher) Types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]domain.EventType, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.Type)
	}
	return types
}
