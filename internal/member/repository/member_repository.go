package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/member/domain"
)

const memberColumns = "id, member_id, nickname, display_name, email, password, phone, status, last_seen, created_at"

// pg unique_violation
const uniqueViolation = "23505"

// MemberRepository definition get Member info
type MemberRepository interface {
	EnsureSchema(ctx context.Context) error
	CreateUser(ctx context.Context, member *domain.Member) error
	UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus, lastSeen time.Time) error
	FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error)
	FindByIDs(ctx context.Context, memberIDs []string) ([]*domain.Member, error)
	Search(ctx context.Context, keyword string, excludeID string, limit int) ([]*domain.Member, error)
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS member (
			id           BIGSERIAL PRIMARY KEY,
			member_id    TEXT        NOT NULL UNIQUE,
			nickname     TEXT        NOT NULL UNIQUE,
			display_name TEXT        NOT NULL DEFAULT '',
			email        TEXT        NOT NULL UNIQUE,
			password     TEXT        NOT NULL,
			phone        TEXT        NOT NULL DEFAULT '',
			status       TEXT        NOT NULL DEFAULT 'offline',
			last_seen    TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create member table: %w", err)
	}
	return nil
}

func (r *memberRepository) CreateUser(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO member(member_id, nickname, display_name, email, password, phone, status, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		member.MemberID, member.Nickname, member.DisplayName, member.Email, member.Password,
		member.Phone, member.Status, member.LastSeen, member.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrMemberDuplicate
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *memberRepository) UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus, lastSeen time.Time) error {
	tag, err := r.db.Exec(ctx, "UPDATE member SET status = $1, last_seen = $2 WHERE member_id = $3", status, lastSeen, memberID)
	if err != nil {
		return fmt.Errorf("update member status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *memberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	queryStr := "SELECT " + memberColumns + " FROM member WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if memberQuery.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *memberQuery.Email)
		paramCount++
	}
	if memberQuery.MemberID != nil {
		queryStr += fmt.Sprintf(" AND member_id = $%d", paramCount)
		params = append(params, *memberQuery.MemberID)
		paramCount++
	}
	if memberQuery.Nickname != nil {
		queryStr += fmt.Sprintf(" AND nickname = $%d", paramCount)
		params = append(params, *memberQuery.Nickname)
		paramCount++
	}
	if memberQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *memberQuery.ID)
	}
	queryStr += " LIMIT 1"

	member, err := scanMember(r.db.QueryRow(ctx, queryStr, params...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return member, nil
}

func (r *memberRepository) FindByIDs(ctx context.Context, memberIDs []string) ([]*domain.Member, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, "SELECT "+memberColumns+" FROM member WHERE member_id = ANY($1)", memberIDs)
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}
	return collectMembers(rows)
}

func (r *memberRepository) Search(ctx context.Context, keyword string, excludeID string, limit int) ([]*domain.Member, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	rows, err := r.db.Query(ctx, `
		SELECT `+memberColumns+` FROM member
		WHERE (nickname ILIKE $1 OR display_name ILIKE $1) AND member_id <> $2
		ORDER BY nickname
		LIMIT $3`, pattern, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	return collectMembers(rows)
}

func collectMembers(rows pgx.Rows) ([]*domain.Member, error) {
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var (
		m      domain.Member
		status string
	)
	if err := row.Scan(&m.ID, &m.MemberID, &m.Nickname, &m.DisplayName, &m.Email, &m.Password,
		&m.Phone, &status, &m.LastSeen, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = domain.MemberStatus(status)
	return &m, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
