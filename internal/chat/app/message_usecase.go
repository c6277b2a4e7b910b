package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/hub"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/keylock"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize int64 = 50
	maxPageSize     int64 = 100
)

// SubmitMessageReq 送出訊息參數
type SubmitMessageReq struct {
	ConversationID string             `json:"-"`
	SenderID       string             `json:"-"`
	Content        string             `json:"content"`
	MessageType    domain.MessageType `json:"message_type"`
	ReplyTo        string             `json:"reply_to,omitempty"`
	File           *domain.FileInfo   `json:"-"`
}

// MessageUseCase 訊息寫入與查詢
type MessageUseCase interface {
	SubmitMessage(ctx context.Context, req SubmitMessageReq) (*domain.Message, error)
	ListMessages(ctx context.Context, chatID, viewerID string, skip, limit int64) ([]*domain.Message, error)
}

type messageUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	broadcaster hub.Broadcaster
	events      repository.EventPublisher
	locks       *keylock.KeyLock
	now         func() time.Time
}

// NewMessageUseCase create MessageUseCase
func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	broadcaster hub.Broadcaster,
	events repository.EventPublisher,
	locks *keylock.KeyLock,
) MessageUseCase {
	if locks == nil {
		locks = keylock.New()
	}
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	return &messageUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		broadcaster: broadcaster,
		events:      events,
		locks:       locks,
		now:         time.Now,
	}
}

// SubmitMessage 驗證, 寫入, 更新 summary, 廣播
// 寫入成功後的 summary / 廣播 / event 失敗只記 log, 訊息不回滾
func (uc *messageUseCase) SubmitMessage(ctx context.Context, req SubmitMessageReq) (*domain.Message, error) {
	if req.MessageType == "" {
		req.MessageType = domain.MessageTypeText
	}
	if !req.MessageType.Valid() || req.MessageType == domain.MessageTypeSystem {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "invalid message_type")
	}
	if req.MessageType == domain.MessageTypeText && strings.TrimSpace(req.Content) == "" {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "content is required")
	}
	if req.MessageType != domain.MessageTypeText && req.File == nil && strings.TrimSpace(req.Content) == "" {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "content or file is required")
	}

	if err := uc.checkParticipant(ctx, req.ConversationID, req.SenderID); err != nil {
		return nil, err
	}

	if req.ReplyTo != "" {
		parent, err := uc.msgRepo.FindByID(ctx, req.ReplyTo)
		if err != nil && !errors.Is(err, repository.ErrMessageNotFound) {
			return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
		}
		if parent == nil || parent.ChatID != req.ConversationID {
			return nil, errprocess.New(errprocess.ErrInvalidRequest, "reply_to message not found")
		}
	}

	msg := &domain.Message{
		ID:          newMessageID(),
		ChatID:      req.ConversationID,
		SenderID:    req.SenderID,
		Content:     req.Content,
		MessageType: req.MessageType,
		Status:      domain.MessageStatusSent,
		ReplyTo:     req.ReplyTo,
		File:        req.File,
	}

	// 寫入之後的步驟不跟著 request 取消
	bg := context.WithoutCancel(ctx)

	unlock := uc.locks.Lock(req.ConversationID)
	msg.Timestamp = uc.now().UTC().Truncate(time.Millisecond)
	if err := uc.msgRepo.InsertMessage(ctx, msg); err != nil {
		unlock()
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	if _, err := uc.convRepo.UpdateSummary(bg, msg.ChatID, msg.Summary(), msg.Timestamp); err != nil {
		logger.Log.Error("update conversation summary",
			zap.String("chat_id", msg.ChatID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
	n := uc.broadcaster.Broadcast(msg.ChatID, domain.EncodeFrame(domain.NewMessageFrame{
		Type:    domain.FrameNewMessage,
		Message: msg,
	}))
	unlock()

	logger.Log.Debug("message submitted",
		zap.String("chat_id", msg.ChatID),
		zap.String("message_id", msg.ID),
		zap.Int("delivered", n),
	)

	publishEvent(bg, uc.events, domain.Event{
		Type:      domain.EventMessageCreated,
		ChatID:    msg.ChatID,
		ActorID:   msg.SenderID,
		MessageID: msg.ID,
		Message:   msg,
	})
	return msg, nil
}

// ListMessages 分頁, 新的一頁在前, 頁內由舊到新
func (uc *messageUseCase) ListMessages(ctx context.Context, chatID, viewerID string, skip, limit int64) ([]*domain.Message, error) {
	if err := uc.checkParticipant(ctx, chatID, viewerID); err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, err := uc.msgRepo.ListByConversation(ctx, chatID, skip, limit)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return msgs, nil
}

func (uc *messageUseCase) checkParticipant(ctx context.Context, chatID, memberID string) error {
	return checkParticipant(ctx, uc.convRepo, chatID, memberID)
}

// checkParticipant 不存在的聊天室和非成員回傳同樣的 NotFound
func checkParticipant(ctx context.Context, convRepo repository.ConversationRepository, chatID, memberID string) error {
	if chatID == "" || memberID == "" {
		return errprocess.New(errprocess.ErrNotFound, "conversation not found")
	}
	ok, err := convRepo.IsParticipant(ctx, chatID, memberID)
	if err != nil {
		return errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if !ok {
		return errprocess.New(errprocess.ErrNotFound, "conversation not found")
	}
	return nil
}

// newMessageID uuid v7, 同毫秒內依產生順序遞增
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func publishEvent(ctx context.Context, events repository.EventPublisher, event domain.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := events.Publish(ctx, event); err != nil {
		logger.Log.Error("publish chat event",
			zap.String("type", string(event.Type)),
			zap.String("chat_id", event.ChatID),
			zap.Error(err),
		)
	}
}
