package domain

import (
	"errors"
	"time"

	"realtime_chat_service/pkg/encrypt"
)

// MemberStatus 用來表示使用者在線狀態
type MemberStatus string

const (
	// MemberStatusOnline 在線
	MemberStatusOnline MemberStatus = "online"
	// MemberStatusAway 離開
	MemberStatusAway MemberStatus = "away"
	// MemberStatusOffline 離線
	MemberStatusOffline MemberStatus = "offline"
)

var (
	// ErrMemberNotFound no member matched the query
	ErrMemberNotFound = errors.New("no member found with given criteria")
	// ErrMemberDuplicate nickname or email already used
	ErrMemberDuplicate = errors.New("nickname or email already registered")
)

// Member 用來表示使用者
type Member struct {
	ID          int64        `json:"-"`
	MemberID    string       `json:"id"`
	Nickname    string       `json:"nickname"`
	DisplayName string       `json:"display_name"`
	Email       string       `json:"email"`
	Password    string       `json:"-"`
	Phone       string       `json:"phone,omitempty"`
	Status      MemberStatus `json:"status"`
	LastSeen    time.Time    `json:"last_seen"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MemberSession 用來表示使用者的 Session, 以 jwt jti 為 key
type MemberSession struct {
	SessionID    string    `json:"SessionID"`
	MemberID     string    `json:"MemberID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// IsPasswordMatch 密碼驗證
func (m *Member) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(m.Password, inputPwd)
}

// IsExpired 檢查 Session 是否已過期
func (s *MemberSession) IsExpired() bool {
	return time.Now().After(s.ExpiredAt)
}

// MemberQuery join conditions are used to query members
type MemberQuery struct {
	ID       *int64  `db:"id"`
	MemberID *string `db:"member_id"`
	Email    *string `db:"email"`
	Nickname *string `db:"nickname"`
}
