package app

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/hub"
	"realtime_chat_service/internal/chat/repository"
	memberdomain "realtime_chat_service/internal/member/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/keylock"
)

// memoryStore in-memory ConversationRepository + MessageRepository for scenario tests
type memoryStore struct {
	mu       sync.Mutex
	convs    map[string]*domain.Conversation
	messages map[string]*domain.Message
	writes   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		convs:    map[string]*domain.Conversation{},
		messages: map[string]*domain.Message{},
	}
}

func copyConv(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}

func copyMsg(m *domain.Message) *domain.Message {
	cp := *m
	return &cp
}

// conversationRepo / messageRepo 兩個介面都有 EnsureIndexes / FindByID, 用 wrapper 分開
func (s *memoryStore) conversationRepo() repository.ConversationRepository { return memoryConvRepo{s} }
func (s *memoryStore) messageRepo() repository.MessageRepository          { return memoryMsgRepo{s} }

func (s *memoryStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type memoryConvRepo struct{ s *memoryStore }

func (r memoryConvRepo) EnsureIndexes(context.Context) error { return nil }

func (r memoryConvRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if conv.PairKey != "" {
		for _, c := range r.s.convs {
			if c.PairKey == conv.PairKey {
				return repository.ErrDuplicate
			}
		}
	}
	r.s.convs[conv.ID] = copyConv(conv)
	r.s.writes++
	return nil
}

func (r memoryConvRepo) FindByID(_ context.Context, chatID string) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[chatID]
	if !ok {
		return nil, repository.ErrConversationNotFound
	}
	return copyConv(c), nil
}

func (r memoryConvRepo) FindPrivate(_ context.Context, pairKey string) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.convs {
		if c.PairKey == pairKey && c.ChatType == domain.ChatTypePrivate {
			return copyConv(c), nil
		}
	}
	return nil, repository.ErrConversationNotFound
}

func (r memoryConvRepo) IsParticipant(_ context.Context, chatID, memberID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[chatID]
	return ok && c.HasParticipant(memberID), nil
}

func (r memoryConvRepo) UpdateSummary(_ context.Context, chatID string, summary domain.LastMessage, ifNewerThan time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[chatID]
	if !ok {
		return false, nil
	}
	if c.LastMessage != nil && c.LastMessage.Timestamp.After(ifNewerThan) {
		return false, nil
	}
	lm := summary
	c.LastMessage = &lm
	c.UpdatedAt = summary.Timestamp
	r.s.writes++
	return true, nil
}

func (r memoryConvRepo) ListByParticipant(_ context.Context, memberID string, limit int64) ([]*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.s.convs {
		if c.HasParticipant(memberID) {
			out = append(out, copyConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryConvRepo) UpdateSettings(_ context.Context, chatID string, name, description *string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[chatID]
	if !ok {
		return repository.ErrConversationNotFound
	}
	if name != nil {
		c.Name = *name
	}
	if description != nil {
		c.Description = *description
	}
	c.UpdatedAt = updatedAt
	r.s.writes++
	return nil
}

type memoryMsgRepo struct{ s *memoryStore }

func (r memoryMsgRepo) EnsureIndexes(context.Context) error { return nil }

func (r memoryMsgRepo) InsertMessage(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[msg.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.messages[msg.ID] = copyMsg(msg)
	r.s.writes++
	return nil
}

func (r memoryMsgRepo) FindByID(_ context.Context, messageID string) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	return copyMsg(m), nil
}

func (r memoryMsgRepo) UpdateStatus(_ context.Context, messageID string, to domain.MessageStatus, allowedFrom []domain.MessageStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return 0, nil
	}
	for _, from := range allowedFrom {
		if m.Status == from {
			m.Status = to
			r.s.writes++
			return 1, nil
		}
	}
	return 0, nil
}

func (r memoryMsgRepo) CountUnread(_ context.Context, chatID, viewerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, m := range r.s.messages {
		if m.ChatID == chatID && m.SenderID != viewerID && m.Status != domain.MessageStatusRead {
			n++
		}
	}
	return n, nil
}

func (r memoryMsgRepo) CountUnreadByConversation(_ context.Context, viewerID string, chatIDs []string) ([]domain.UnreadInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range chatIDs {
		wanted[id] = true
	}
	byChat := map[string]*domain.UnreadInfo{}
	for _, m := range r.s.messages {
		if !wanted[m.ChatID] || m.SenderID == viewerID || m.Status == domain.MessageStatusRead {
			continue
		}
		info, ok := byChat[m.ChatID]
		if !ok {
			info = &domain.UnreadInfo{ChatID: m.ChatID}
			byChat[m.ChatID] = info
		}
		info.UnreadCount++
		if m.Timestamp.After(info.LastUnreadTimestamp) {
			info.LastUnreadTimestamp = m.Timestamp
		}
	}
	var out []domain.UnreadInfo
	for _, info := range byChat {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUnreadTimestamp.After(out[j].LastUnreadTimestamp) })
	return out, nil
}

func (r memoryMsgRepo) ListByConversation(_ context.Context, chatID string, skip, limit int64) ([]*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.Message
	for _, m := range r.s.messages {
		if m.ChatID == chatID {
			all = append(all, copyMsg(m))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID > all[j].ID
	})
	if skip >= int64(len(all)) {
		return []*domain.Message{}, nil
	}
	all = all[skip:]
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

// memoryMembers MemberDirectory + Authenticator (token == "token-" + member id)
type memoryMembers struct {
	mu      sync.Mutex
	members map[string]*memberdomain.Member
}

func newMemoryMembers(ids ...string) *memoryMembers {
	m := &memoryMembers{members: map[string]*memberdomain.Member{}}
	for _, id := range ids {
		m.members[id] = &memberdomain.Member{MemberID: id, Nickname: id, DisplayName: id, Status: memberdomain.MemberStatusOffline}
	}
	return m
}

func (m *memoryMembers) FindMember(_ context.Context, memberID string) (*memberdomain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[memberID]
	if !ok {
		return nil, errprocess.New(errprocess.ErrNotFound, "user not found")
	}
	cp := *member
	return &cp, nil
}

func (m *memoryMembers) FindMembers(_ context.Context, memberIDs []string) ([]*memberdomain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*memberdomain.Member{}
	for _, id := range memberIDs {
		if member, ok := m.members[id]; ok {
			cp := *member
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryMembers) SetPresence(_ context.Context, memberID string, status memberdomain.MemberStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[memberID]
	if !ok {
		return errprocess.New(errprocess.ErrNotFound, "user not found")
	}
	member.Status = status
	member.LastSeen = time.Now().UTC()
	return nil
}

func (m *memoryMembers) status(memberID string) memberdomain.MemberStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[memberID].Status
}

func (m *memoryMembers) Authenticate(_ context.Context, credential string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if credential == "expired" {
		return "", errprocess.ErrTokenExpired
	}
	if len(credential) > len("token-") && credential[:len("token-")] == "token-" {
		if _, ok := m.members[credential[len("token-"):]]; ok {
			return credential[len("token-"):], nil
		}
	}
	return "", errprocess.ErrUnauthenticated
}

// chatFixture wired use cases on top of the memory store
type chatFixture struct {
	store    *memoryStore
	members  *memoryMembers
	recorder *RecordingBroadcaster
	events   *RecordingPublisher
	storage  *memoryObjectStorage

	messages      MessageUseCase
	delivery      DeliveryUseCase
	conversations ConversationUseCase
	attachments   AttachmentUseCase
}

// newChatFixture 廣播只記錄不送出
func newChatFixture(members ...string) *chatFixture {
	f := newBareFixture(members...)
	f.recorder = NewRecordingBroadcaster()
	f.wire(f.recorder)
	return f
}

// newLiveFixture 廣播走真的 registry
func newLiveFixture(members ...string) (*chatFixture, *hub.Registry) {
	f := newBareFixture(members...)
	reg := hub.NewRegistry(f.store.conversationRepo())
	f.wire(reg)
	return f, reg
}

func newBareFixture(members ...string) *chatFixture {
	return &chatFixture{
		store:   newMemoryStore(),
		members: newMemoryMembers(members...),
		events:  &RecordingPublisher{},
		storage: newMemoryObjectStorage(),
	}
}

func (f *chatFixture) wire(b hub.Broadcaster) {
	convRepo, msgRepo := f.store.conversationRepo(), f.store.messageRepo()
	f.messages = NewMessageUseCase(convRepo, msgRepo, b, f.events, keylock.New())
	f.delivery = NewDeliveryUseCase(convRepo, msgRepo, b, f.events)
	f.conversations = NewConversationUseCase(convRepo, msgRepo, f.members, b, f.events)
	f.attachments = NewAttachmentUseCase(convRepo, newMemoryAttachments(), f.storage, f.messages, DefaultMaxFileSize, time.Minute)
}

type memoryAttachments struct {
	mu   sync.Mutex
	rows map[string]*domain.Attachment
}

func newMemoryAttachments() *memoryAttachments {
	return &memoryAttachments{rows: map[string]*domain.Attachment{}}
}

func (m *memoryAttachments) AutoMigrate() error { return nil }

func (m *memoryAttachments) Create(_ context.Context, a *domain.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memoryAttachments) FindByID(_ context.Context, id string) (*domain.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrAttachmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAttachments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memoryObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjectStorage() *memoryObjectStorage {
	return &memoryObjectStorage{objects: map[string][]byte{}}
}

func (m *memoryObjectStorage) PutObject(_ context.Context, name string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *memoryObjectStorage) RemoveObject(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memoryObjectStorage) PresignGetURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "http://minio.local/" + name + "?X-Amz-Signature=test", nil
}

func (m *memoryObjectStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
