package app

import (
	"context"
	"errors"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/hub"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// conversationListLimit 對話列表與未讀統計的上限
const conversationListLimit int64 = 100

// DeliveryUseCase 訊息狀態 sent -> delivered -> read
type DeliveryUseCase interface {
	MarkRead(ctx context.Context, chatID, messageID, readerID string) (domain.ReadReceipt, error)
	// MarkDelivered 回傳 true 表示已經是 delivered 或 read
	MarkDelivered(ctx context.Context, chatID, messageID, userID string) (bool, error)
	UnreadCount(ctx context.Context, chatID, viewerID string) (int64, error)
	UnreadByConversation(ctx context.Context, viewerID string) ([]domain.UnreadInfo, error)
}

type deliveryUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	broadcaster hub.Broadcaster
	events      repository.EventPublisher
}

// NewDeliveryUseCase create DeliveryUseCase
func NewDeliveryUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	broadcaster hub.Broadcaster,
	events repository.EventPublisher,
) DeliveryUseCase {
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	return &deliveryUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		broadcaster: broadcaster,
		events:      events,
	}
}

// eligibleMessage 訊息必須屬於該聊天室, 操作者是成員且不是寄件人
func (uc *deliveryUseCase) eligibleMessage(ctx context.Context, chatID, messageID, userID string) (*domain.Message, error) {
	if err := checkParticipant(ctx, uc.convRepo, chatID, userID); err != nil {
		return nil, err
	}

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, errprocess.New(errprocess.ErrNotFound, "message not found")
		}
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if msg.ChatID != chatID {
		return nil, errprocess.New(errprocess.ErrNotFound, "message not found")
	}
	// 自己的訊息不能標成已讀
	if msg.SenderID == userID {
		return nil, errprocess.New(errprocess.ErrNotFound, "message not found")
	}
	return msg, nil
}

// MarkRead 已讀是 soft result, 不是錯誤
func (uc *deliveryUseCase) MarkRead(ctx context.Context, chatID, messageID, readerID string) (domain.ReadReceipt, error) {
	msg, err := uc.eligibleMessage(ctx, chatID, messageID, readerID)
	if err != nil {
		return domain.ReadReceipt{}, err
	}
	if msg.Status == domain.MessageStatusRead {
		return domain.ReadReceipt{AlreadyRead: true}, nil
	}

	n, err := uc.msgRepo.UpdateStatus(ctx, msg.ID, domain.MessageStatusRead, domain.StatusesBefore(domain.MessageStatusRead))
	if err != nil {
		return domain.ReadReceipt{}, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	// 並發的另一個 reader 先寫入了
	if n == 0 {
		return domain.ReadReceipt{AlreadyRead: true}, nil
	}

	bg := context.WithoutCancel(ctx)
	unread, err := uc.msgRepo.CountUnread(bg, chatID, readerID)
	if err != nil {
		logger.Log.Error("count unread after read", zap.String("chat_id", chatID), zap.Error(err))
	}

	uc.broadcaster.Broadcast(chatID, domain.EncodeFrame(domain.ReceiptFrame{
		Type:      domain.FrameMessageRead,
		ChatID:    chatID,
		MessageID: msg.ID,
		ReaderID:  readerID,
	}))
	publishEvent(bg, uc.events, domain.Event{
		Type:      domain.EventMessageRead,
		ChatID:    chatID,
		ActorID:   readerID,
		MessageID: msg.ID,
	})

	return domain.ReadReceipt{UnreadCount: unread}, nil
}

// MarkDelivered sent -> delivered 並廣播; 已經是 delivered 或 read 時回 true 且不廣播
func (uc *deliveryUseCase) MarkDelivered(ctx context.Context, chatID, messageID, userID string) (bool, error) {
	msg, err := uc.eligibleMessage(ctx, chatID, messageID, userID)
	if err != nil {
		return false, err
	}
	if !msg.Status.CanAdvanceTo(domain.MessageStatusDelivered) {
		return true, nil
	}

	n, err := uc.msgRepo.UpdateStatus(ctx, msg.ID, domain.MessageStatusDelivered, domain.StatusesBefore(domain.MessageStatusDelivered))
	if err != nil {
		return false, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if n == 0 {
		return true, nil
	}

	uc.broadcaster.Broadcast(chatID, domain.EncodeFrame(domain.ReceiptFrame{
		Type:      domain.FrameMessageDelivered,
		ChatID:    chatID,
		MessageID: msg.ID,
		UserID:    userID,
	}))
	publishEvent(context.WithoutCancel(ctx), uc.events, domain.Event{
		Type:      domain.EventMessageDelivered,
		ChatID:    chatID,
		ActorID:   userID,
		MessageID: msg.ID,
	})
	return false, nil
}

// UnreadCount 別人送的且不是 read 的訊息數
func (uc *deliveryUseCase) UnreadCount(ctx context.Context, chatID, viewerID string) (int64, error) {
	if err := checkParticipant(ctx, uc.convRepo, chatID, viewerID); err != nil {
		return 0, err
	}
	n, err := uc.msgRepo.CountUnread(ctx, chatID, viewerID)
	if err != nil {
		return 0, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	return n, nil
}

// UnreadByConversation 只列出有未讀的聊天室, 最新未讀在前
func (uc *deliveryUseCase) UnreadByConversation(ctx context.Context, viewerID string) ([]domain.UnreadInfo, error) {
	convs, err := uc.convRepo.ListByParticipant(ctx, viewerID, conversationListLimit)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}

	infos, err := uc.msgRepo.CountUnreadByConversation(ctx, viewerID, ids)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if infos == nil {
		infos = []domain.UnreadInfo{}
	}
	return infos, nil
}
