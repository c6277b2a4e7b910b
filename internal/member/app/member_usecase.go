package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"realtime_chat_service/internal/member/domain"
	"realtime_chat_service/internal/member/repository"
	"realtime_chat_service/pkg/encrypt"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// searchLimit 使用者搜尋筆數上限
const searchLimit = 20

// RegisterReq 註冊參數
type RegisterReq struct {
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// AuthResult 登入/註冊回傳
type AuthResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        *domain.Member `json:"user"`
}

// MemberUseCase 這裡封裝了對外提供的應用服務
type MemberUseCase interface {
	Register(ctx context.Context, req RegisterReq) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	FindMember(ctx context.Context, memberID string) (*domain.Member, error)
	FindMembers(ctx context.Context, memberIDs []string) ([]*domain.Member, error)
	Search(ctx context.Context, keyword, viewerID string) ([]*domain.Member, error)
	SetPresence(ctx context.Context, memberID string, status domain.MemberStatus) error
}

type memberUseCase struct {
	memberRepo   repository.MemberRepository
	sessionRepo  repository.SessionRepository
	sessionTTL   time.Duration
	hashPassword func(string) (string, error)
}

// NewMemberUseCase 建立一個新的 MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionRepo repository.SessionRepository,
	sessionTTL time.Duration,
	hashPassword func(string) (string, error),
) MemberUseCase {
	if hashPassword == nil {
		hashPassword = encrypt.HashPassword
	}
	return &memberUseCase{
		memberRepo:   memberRepo,
		sessionRepo:  sessionRepo,
		sessionTTL:   sessionTTL,
		hashPassword: hashPassword,
	}
}

// Register 建立帳號並直接登入
func (m *memberUseCase) Register(ctx context.Context, req RegisterReq) (*AuthResult, error) {
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Nickname == "" {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "nickname is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "invalid email")
	}
	if err := encrypt.ValidatePasswordStrength(req.Password); err != nil {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, err.Error())
	}

	// 檢查 nickname / email 是否已存在
	for _, q := range []*domain.MemberQuery{{Nickname: &req.Nickname}, {Email: &req.Email}} {
		_, err := m.memberRepo.FindByMember(ctx, q)
		if err == nil {
			return nil, errprocess.New(errprocess.ErrInvalidRequest, "Nickname or email already registered")
		}
		if !errors.Is(err, domain.ErrMemberNotFound) {
			return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
		}
	}

	pw, err := m.hashPassword(req.Password)
	if err != nil {
		logger.Log.Errorf("password err :", err)
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "invalid password")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Nickname
	}

	now := time.Now().UTC()
	member := &domain.Member{
		MemberID:    uuid.New().String(),
		Nickname:    req.Nickname,
		DisplayName: displayName,
		Email:       req.Email,
		Password:    pw,
		Phone:       strings.TrimSpace(req.Phone),
		Status:      domain.MemberStatusOnline,
		LastSeen:    now,
		CreatedAt:   now,
	}

	if err := m.memberRepo.CreateUser(ctx, member); err != nil {
		if errors.Is(err, domain.ErrMemberDuplicate) {
			return nil, errprocess.New(errprocess.ErrInvalidRequest, "Nickname or email already registered")
		}
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	logger.Log.Info("member registered", zap.String("member_id", member.MemberID))

	return m.startSession(ctx, member)
}

// Login 驗證帳密, 更新在線狀態並建立 session
func (m *memberUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			logger.Log.Debug("login email not found", zap.String("email", email))
			return nil, errprocess.New(errprocess.ErrUnauthenticated, "Incorrect email or password")
		}
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Debug("login password mismatch", zap.String("member_id", member.MemberID))
		return nil, errprocess.New(errprocess.ErrUnauthenticated, "Incorrect email or password")
	}

	now := time.Now().UTC()
	if err := m.memberRepo.UpdateMemberStatus(ctx, member.MemberID, domain.MemberStatusOnline, now); err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	member.Status = domain.MemberStatusOnline
	member.LastSeen = now

	return m.startSession(ctx, member)
}

func (m *memberUseCase) startSession(ctx context.Context, member *domain.Member) (*AuthResult, error) {
	t, err := token.GenerateJWTWrapper(member.MemberID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	claims, err := token.ParseJWTWrapper(t)
	if err != nil {
		return nil, fmt.Errorf("parse issued token: %w", err)
	}

	now := time.Now()
	session := domain.MemberSession{
		SessionID:    claims.SessionID(),
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}
	if err := m.sessionRepo.CreateSession(ctx, session, m.sessionTTL); err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	return &AuthResult{
		AccessToken: t,
		TokenType:   "bearer",
		User:        member,
	}, nil
}

// Logout 刪除 session 並設為離線
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Debug("logout parse token", zap.Error(err))
		return errprocess.ErrUnauthenticated
	}

	if err := m.sessionRepo.ExpireSession(ctx, tokenInfo.SessionID()); err != nil {
		return errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	return m.SetPresence(ctx, tokenInfo.MemberID(), domain.MemberStatusOffline)
}

// FindMember 用 member id 尋找使用者
func (m *memberUseCase) FindMember(ctx context.Context, memberID string) (*domain.Member, error) {
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{MemberID: &memberID})
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, errprocess.New(errprocess.ErrNotFound, "user not found")
		}
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	return member, nil
}

// FindMembers 批次取得使用者, 不存在的 id 會被略過
func (m *memberUseCase) FindMembers(ctx context.Context, memberIDs []string) ([]*domain.Member, error) {
	members, err := m.memberRepo.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	return members, nil
}

// Search 以 nickname / display name 搜尋使用者
func (m *memberUseCase) Search(ctx context.Context, keyword, viewerID string) ([]*domain.Member, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []*domain.Member{}, nil
	}
	members, err := m.memberRepo.Search(ctx, keyword, viewerID, searchLimit)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if members == nil {
		members = []*domain.Member{}
	}
	return members, nil
}

// SetPresence 更新在線狀態與 last_seen
func (m *memberUseCase) SetPresence(ctx context.Context, memberID string, status domain.MemberStatus) error {
	if err := m.memberRepo.UpdateMemberStatus(ctx, memberID, status, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return errprocess.New(errprocess.ErrNotFound, "user not found")
		}
		return errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	return nil
}
