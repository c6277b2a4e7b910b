package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/hub"
	"realtime_chat_service/internal/chat/repository"
	memberdomain "realtime_chat_service/internal/member/domain"
	"realtime_chat_service/pkg"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemberDirectory 聊天室需要的使用者查詢與在線狀態
type MemberDirectory interface {
	FindMember(ctx context.Context, memberID string) (*memberdomain.Member, error)
	FindMembers(ctx context.Context, memberIDs []string) ([]*memberdomain.Member, error)
	SetPresence(ctx context.Context, memberID string, status memberdomain.MemberStatus) error
}

// CreateGroupReq 建立群組參數
type CreateGroupReq struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ParticipantIDs []string `json:"participant_ids"`
}

// UpdateGroupReq 群組設定, nil 表示不修改
type UpdateGroupReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ConversationUseCase 聊天室建立與查詢
type ConversationUseCase interface {
	CreatePrivate(ctx context.Context, creatorID, participantID string) (*domain.ConversationView, error)
	CreateGroup(ctx context.Context, creatorID string, req CreateGroupReq) (*domain.ConversationView, error)
	UpdateGroupSettings(ctx context.Context, chatID, memberID string, req UpdateGroupReq) (*domain.ConversationView, error)
	ListConversations(ctx context.Context, viewerID string) ([]*domain.ConversationView, error)
	GetConversation(ctx context.Context, chatID, viewerID string) (*domain.ConversationView, error)
}

type conversationUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	members  MemberDirectory
	notifier hub.Broadcaster
	events   repository.EventPublisher
}

// NewConversationUseCase create ConversationUseCase
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	members MemberDirectory,
	notifier hub.Broadcaster,
	events repository.EventPublisher,
) ConversationUseCase {
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	return &conversationUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		members:  members,
		notifier: notifier,
		events:   events,
	}
}

// CreatePrivate 同一組人只會有一個 private chat, 已存在就直接回傳
func (uc *conversationUseCase) CreatePrivate(ctx context.Context, creatorID, participantID string) (*domain.ConversationView, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "participant_id is required")
	}
	if participantID == creatorID {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "cannot create a chat with yourself")
	}
	if _, err := uc.members.FindMember(ctx, participantID); err != nil {
		return nil, err
	}

	pairKey := domain.PairKey(creatorID, participantID)
	conv, err := uc.convRepo.FindPrivate(ctx, pairKey)
	if err == nil {
		return uc.view(ctx, conv, creatorID)
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	conv = &domain.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{creatorID, participantID},
		ChatType:     domain.ChatTypePrivate,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
		PairKey:      pairKey,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
		}
		// 並發建立撞到 unique index, 回傳先建立的那個
		existing, err := uc.convRepo.FindPrivate(ctx, pairKey)
		if err != nil {
			return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
		}
		return uc.view(ctx, existing, creatorID)
	}

	logger.Log.Info("private chat created", zap.String("chat_id", conv.ID), zap.String("created_by", creatorID))
	uc.announce(ctx, conv)
	return uc.view(ctx, conv, creatorID)
}

// CreateGroup 建立者一定在成員內
func (uc *conversationUseCase) CreateGroup(ctx context.Context, creatorID string, req CreateGroupReq) (*domain.ConversationView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "name is required")
	}

	participants := pkg.UniqueIDs(append([]string{creatorID}, req.ParticipantIDs...)...)

	if others := participants[1:]; len(others) > 0 {
		found, err := uc.members.FindMembers(ctx, others)
		if err != nil {
			return nil, err
		}
		if len(found) != len(others) {
			return nil, errprocess.New(errprocess.ErrNotFound, "user not found")
		}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	conv := &domain.Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		ChatType:     domain.ChatTypeGroup,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	logger.Log.Info("group chat created",
		zap.String("chat_id", conv.ID),
		zap.String("created_by", creatorID),
		zap.Int("participants", len(participants)),
	)
	uc.announce(ctx, conv)
	return uc.view(ctx, conv, creatorID)
}

// announce 發 conversation.created 事件, 並通知其他成員目前綁定的連線 (不在線就略過)
func (uc *conversationUseCase) announce(ctx context.Context, conv *domain.Conversation) {
	publishEvent(context.WithoutCancel(ctx), uc.events, domain.Event{
		Type:         domain.EventConversationCreated,
		ChatID:       conv.ID,
		ActorID:      conv.CreatedBy,
		Conversation: conv,
	})
	if uc.notifier == nil {
		return
	}

	frame := domain.EncodeFrame(domain.ChatCreatedFrame{Type: domain.FrameChatCreated, Chat: conv})
	for _, memberID := range pkg.Without(conv.Participants, conv.CreatedBy) {
		if err := uc.notifier.SendToUser(memberID, frame); err != nil && !errors.Is(err, errprocess.ErrNotFound) {
			logger.Log.Debug("chat_created not delivered", zap.String("user_id", memberID), zap.Error(err))
		}
	}
}

// UpdateGroupSettings 只有群組建立者可以修改
func (uc *conversationUseCase) UpdateGroupSettings(ctx context.Context, chatID, memberID string, req UpdateGroupReq) (*domain.ConversationView, error) {
	conv, err := uc.findVisible(ctx, chatID, memberID)
	if err != nil {
		return nil, err
	}
	if conv.ChatType != domain.ChatTypeGroup {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "only group chats have settings")
	}
	if !conv.IsCreator(memberID) {
		return nil, errprocess.New(errprocess.ErrForbidden, "only the creator can change group settings")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errprocess.New(errprocess.ErrInvalidRequest, "name cannot be empty")
		}
		req.Name = &name
	}
	if req.Name == nil && req.Description == nil {
		return uc.view(ctx, conv, memberID)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := uc.convRepo.UpdateSettings(ctx, chatID, req.Name, req.Description, now); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, errprocess.New(errprocess.ErrNotFound, "conversation not found")
		}
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	if req.Name != nil {
		conv.Name = *req.Name
	}
	if req.Description != nil {
		conv.Description = *req.Description
	}
	conv.UpdatedAt = now
	return uc.view(ctx, conv, memberID)
}

// ListConversations 依 updated_at 新到舊
func (uc *conversationUseCase) ListConversations(ctx context.Context, viewerID string) ([]*domain.ConversationView, error) {
	convs, err := uc.convRepo.ListByParticipant(ctx, viewerID, conversationListLimit)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	views := make([]*domain.ConversationView, 0, len(convs))
	if len(convs) == 0 {
		return views, nil
	}

	chatIDs := make([]string, 0, len(convs))
	var others []string
	for _, c := range convs {
		chatIDs = append(chatIDs, c.ID)
		others = append(others, pkg.Without(c.Participants, viewerID)...)
	}
	others = pkg.UniqueIDs(others...)

	profiles := map[string]*memberdomain.Member{}
	if len(others) > 0 {
		found, err := uc.members.FindMembers(ctx, others)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			profiles[m.MemberID] = m
		}
	}

	unread := map[string]int64{}
	infos, err := uc.msgRepo.CountUnreadByConversation(ctx, viewerID, chatIDs)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	for _, info := range infos {
		unread[info.ChatID] = info.UnreadCount
	}

	for _, c := range convs {
		info := make([]*memberdomain.Member, 0, len(c.Participants))
		for _, p := range c.Participants {
			if m, ok := profiles[p]; ok {
				info = append(info, m)
			}
		}
		views = append(views, &domain.ConversationView{
			Conversation:     c,
			ParticipantsInfo: info,
			UnreadCount:      unread[c.ID],
		})
	}
	return views, nil
}

// GetConversation 非成員與不存在同樣回 not_found
func (uc *conversationUseCase) GetConversation(ctx context.Context, chatID, viewerID string) (*domain.ConversationView, error) {
	conv, err := uc.findVisible(ctx, chatID, viewerID)
	if err != nil {
		return nil, err
	}
	return uc.view(ctx, conv, viewerID)
}

// findVisible 非成員看到的是 NotFound
func (uc *conversationUseCase) findVisible(ctx context.Context, chatID, memberID string) (*domain.Conversation, error) {
	conv, err := uc.convRepo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, errprocess.New(errprocess.ErrNotFound, "conversation not found")
		}
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if !conv.HasParticipant(memberID) {
		return nil, errprocess.New(errprocess.ErrNotFound, "conversation not found")
	}
	return conv, nil
}

func (uc *conversationUseCase) view(ctx context.Context, conv *domain.Conversation, viewerID string) (*domain.ConversationView, error) {
	others := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p != viewerID {
			others = append(others, p)
		}
	}

	info := []*memberdomain.Member{}
	if len(others) > 0 {
		found, err := uc.members.FindMembers(ctx, others)
		if err != nil {
			return nil, err
		}
		if found != nil {
			info = found
		}
	}

	unread, err := uc.msgRepo.CountUnread(ctx, conv.ID, viewerID)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	return &domain.ConversationView{
		Conversation:     conv,
		ParticipantsInfo: info,
		UnreadCount:      unread,
	}, nil
}
