package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	memberdomain "realtime_chat_service/internal/member/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newConversationTestUseCase() (ConversationUseCase, *MockConversationRepository, *MockMessageRepository, *MockMemberDirectory) {
	uc, convRepo, msgRepo, members, _ := newConversationTestUseCaseWithHub()
	return uc, convRepo, msgRepo, members
}

func newConversationTestUseCaseWithHub() (ConversationUseCase, *MockConversationRepository, *MockMessageRepository, *MockMemberDirectory, *RecordingBroadcaster) {
	logger.SetNewNop()
	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	members := new(MockMemberDirectory)
	notifier := NewRecordingBroadcaster()
	return NewConversationUseCase(convRepo, msgRepo, members, notifier, &RecordingPublisher{}), convRepo, msgRepo, members, notifier
}

func TestConversationUseCase_CreatePrivate(t *testing.T) {
	ctx := context.Background()
	bob := &memberdomain.Member{MemberID: "bob", Nickname: "bob"}

	t.Run("建立新的 private chat", func(t *testing.T) {
		uc, convRepo, msgRepo, members := newConversationTestUseCase()
		members.On("FindMember", ctx, "bob").Return(bob, nil).Once()
		convRepo.On("FindPrivate", ctx, "alice:bob").Return(nil, repository.ErrConversationNotFound).Once()
		convRepo.On("Create", ctx, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.ChatType == domain.ChatTypePrivate && c.PairKey == "alice:bob" && len(c.Participants) == 2
		})).Return(nil).Once()
		members.On("FindMembers", ctx, []string{"bob"}).Return([]*memberdomain.Member{bob}, nil).Once()
		msgRepo.On("CountUnread", ctx, mock.Anything, "alice").Return(int64(0), nil).Once()

		view, err := uc.CreatePrivate(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, "alice", view.CreatedBy)
		require.Len(t, view.ParticipantsInfo, 1)
		assert.Equal(t, "bob", view.ParticipantsInfo[0].MemberID)
		convRepo.AssertExpectations(t)
	})

	t.Run("已存在就回傳同一個", func(t *testing.T) {
		uc, convRepo, msgRepo, members := newConversationTestUseCase()
		existing := &domain.Conversation{ID: "chat-1", Participants: []string{"bob", "alice"}, ChatType: domain.ChatTypePrivate, PairKey: "alice:bob"}
		members.On("FindMember", ctx, "alice").Return(&memberdomain.Member{MemberID: "alice"}, nil).Once()
		convRepo.On("FindPrivate", ctx, "alice:bob").Return(existing, nil).Once()
		members.On("FindMembers", ctx, []string{"alice"}).Return([]*memberdomain.Member{{MemberID: "alice"}}, nil).Once()
		msgRepo.On("CountUnread", ctx, "chat-1", "bob").Return(int64(4), nil).Once()

		view, err := uc.CreatePrivate(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, "chat-1", view.ID)
		assert.EqualValues(t, 4, view.UnreadCount)
		convRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("並發建立撞 unique index", func(t *testing.T) {
		uc, convRepo, msgRepo, members := newConversationTestUseCase()
		winner := &domain.Conversation{ID: "chat-winner", Participants: []string{"alice", "bob"}, ChatType: domain.ChatTypePrivate}
		members.On("FindMember", ctx, "bob").Return(bob, nil).Once()
		convRepo.On("FindPrivate", ctx, "alice:bob").Return(nil, repository.ErrConversationNotFound).Once()
		convRepo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate).Once()
		convRepo.On("FindPrivate", ctx, "alice:bob").Return(winner, nil).Once()
		members.On("FindMembers", ctx, []string{"bob"}).Return([]*memberdomain.Member{bob}, nil).Once()
		msgRepo.On("CountUnread", ctx, "chat-winner", "alice").Return(int64(0), nil).Once()

		view, err := uc.CreatePrivate(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, "chat-winner", view.ID)
	})

	t.Run("自己 / 不存在的使用者", func(t *testing.T) {
		uc, _, _, members := newConversationTestUseCase()
		_, err := uc.CreatePrivate(ctx, "alice", "alice")
		assert.ErrorIs(t, err, errprocess.ErrInvalidRequest)

		_, err = uc.CreatePrivate(ctx, "alice", "")
		assert.ErrorIs(t, err, errprocess.ErrInvalidRequest)

		members.On("FindMember", ctx, "ghost").Return(nil, errprocess.New(errprocess.ErrNotFound, "user not found")).Once()
		_, err = uc.CreatePrivate(ctx, "alice", "ghost")
		assert.ErrorIs(t, err, errprocess.ErrNotFound)
	})
}

func TestConversationUseCase_CreateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("建立者自動加入, 重複成員去除", func(t *testing.T) {
		uc, convRepo, msgRepo, members, notifier := newConversationTestUseCaseWithHub()
		members.On("FindMembers", ctx, []string{"bob", "carol"}).Return([]*memberdomain.Member{{MemberID: "bob"}, {MemberID: "carol"}}, nil).Twice()
		convRepo.On("Create", ctx, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.ChatType == domain.ChatTypeGroup && c.Name == "team" && len(c.Participants) == 3 && c.Participants[0] == "alice"
		})).Return(nil).Once()
		msgRepo.On("CountUnread", ctx, mock.Anything, "alice").Return(int64(0), nil).Once()

		view, err := uc.CreateGroup(ctx, "alice", CreateGroupReq{Name: " team ", ParticipantIDs: []string{"bob", "carol", "bob", "alice"}})
		require.NoError(t, err)
		assert.Len(t, view.ParticipantsInfo, 2)
		convRepo.AssertExpectations(t)

		// 其他成員收到 chat_created, 建立者不會
		for _, id := range []string{"bob", "carol"} {
			require.Len(t, notifier.ToUser[id], 1)
			assert.Contains(t, string(notifier.ToUser[id][0]), `"type":"chat_created"`)
			assert.Contains(t, string(notifier.ToUser[id][0]), `"id":"`+view.ID+`"`)
		}
		assert.Empty(t, notifier.ToUser["alice"])
	})

	t.Run("缺名稱 / 成員不存在", func(t *testing.T) {
		uc, convRepo, _, members := newConversationTestUseCase()
		_, err := uc.CreateGroup(ctx, "alice", CreateGroupReq{Name: "  "})
		assert.ErrorIs(t, err, errprocess.ErrInvalidRequest)

		members.On("FindMembers", ctx, []string{"ghost"}).Return([]*memberdomain.Member{}, nil).Once()
		_, err = uc.CreateGroup(ctx, "alice", CreateGroupReq{Name: "team", ParticipantIDs: []string{"ghost"}})
		assert.ErrorIs(t, err, errprocess.ErrNotFound)
		convRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestConversationUseCase_UpdateGroupSettings(t *testing.T) {
	ctx := context.Background()
	group := func() *domain.Conversation {
		return &domain.Conversation{ID: "g1", ChatType: domain.ChatTypeGroup, Name: "old", CreatedBy: "alice", Participants: []string{"alice", "bob"}}
	}
	name := "new name"

	t.Run("建立者可以修改", func(t *testing.T) {
		uc, convRepo, msgRepo, members := newConversationTestUseCase()
		convRepo.On("FindByID", ctx, "g1").Return(group(), nil).Once()
		convRepo.On("UpdateSettings", ctx, "g1", &name, (*string)(nil), mock.AnythingOfType("time.Time")).Return(nil).Once()
		members.On("FindMembers", ctx, []string{"bob"}).Return([]*memberdomain.Member{{MemberID: "bob"}}, nil).Once()
		msgRepo.On("CountUnread", ctx, "g1", "alice").Return(int64(0), nil).Once()

		view, err := uc.UpdateGroupSettings(ctx, "g1", "alice", UpdateGroupReq{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "new name", view.Name)
	})

	t.Run("非建立者 403", func(t *testing.T) {
		uc, convRepo, _, _ := newConversationTestUseCase()
		convRepo.On("FindByID", ctx, "g1").Return(group(), nil).Once()

		_, err := uc.UpdateGroupSettings(ctx, "g1", "bob", UpdateGroupReq{Name: &name})
		assert.ErrorIs(t, err, errprocess.ErrForbidden)
	})

	t.Run("非成員 404", func(t *testing.T) {
		uc, convRepo, _, _ := newConversationTestUseCase()
		convRepo.On("FindByID", ctx, "g1").Return(group(), nil).Once()

		_, err := uc.UpdateGroupSettings(ctx, "g1", "mallory", UpdateGroupReq{Name: &name})
		assert.ErrorIs(t, err, errprocess.ErrNotFound)
	})

	t.Run("private chat 沒有設定", func(t *testing.T) {
		uc, convRepo, _, _ := newConversationTestUseCase()
		convRepo.On("FindByID", ctx, "p1").Return(&domain.Conversation{ID: "p1", ChatType: domain.ChatTypePrivate, CreatedBy: "alice", Participants: []string{"alice", "bob"}}, nil).Once()

		_, err := uc.UpdateGroupSettings(ctx, "p1", "alice", UpdateGroupReq{Name: &name})
		assert.ErrorIs(t, err, errprocess.ErrInvalidRequest)
	})
}

func TestConversationUseCase_ListConversations(t *testing.T) {
	ctx := context.Background()
	uc, convRepo, msgRepo, members := newConversationTestUseCase()
	now := time.Now().UTC()
	convs := []*domain.Conversation{
		{ID: "c2", Participants: []string{"alice", "carol"}, UpdatedAt: now},
		{ID: "c1", Participants: []string{"alice", "bob"}, UpdatedAt: now.Add(-time.Hour)},
	}
	convRepo.On("ListByParticipant", ctx, "alice", conversationListLimit).Return(convs, nil).Once()
	members.On("FindMembers", ctx, []string{"carol", "bob"}).Return([]*memberdomain.Member{{MemberID: "bob"}, {MemberID: "carol"}}, nil).Once()
	msgRepo.On("CountUnreadByConversation", ctx, "alice", []string{"c2", "c1"}).Return([]domain.UnreadInfo{{ChatID: "c1", UnreadCount: 5}}, nil).Once()

	views, err := uc.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "c2", views[0].ID)
	assert.Equal(t, "carol", views[0].ParticipantsInfo[0].MemberID)
	assert.EqualValues(t, 0, views[0].UnreadCount)
	assert.Equal(t, "bob", views[1].ParticipantsInfo[0].MemberID)
	assert.EqualValues(t, 5, views[1].UnreadCount)
}

// 同一組人並發建立 private chat 只會有一個
func TestCreatePrivateIsIdempotent(t *testing.T) {
	logger.SetNewNop()
	f := newChatFixture("alice", "bob")
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			creator, other := "alice", "bob"
			if i%2 == 1 {
				creator, other = other, creator
			}
			view, err := f.conversations.CreatePrivate(ctx, creator, other)
			if assert.NoError(t, err) {
				mu.Lock()
				ids[view.ID] = true
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	convs, err := f.store.conversationRepo().ListByParticipant(ctx, "alice", 100)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}
