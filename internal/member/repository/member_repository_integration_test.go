//go:build integration

package repository

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"realtime_chat_service/internal/member/domain"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"
	testtool "realtime_chat_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	ctx := context.Background()

	containers := &testtool.Containers{}

	// **啟動 PostgreSQL / Redis**
	pgEP, err := containers.Start(ctx, testtool.PostgresRequest())
	if err != nil {
		log.Fatalf("❌ Failed to start PostgreSQL container: %v", err)
	}
	redisEP, err := containers.Start(ctx, testtool.RedisRequest())
	if err != nil {
		containers.TerminateAll(ctx)
		log.Fatalf("❌ Failed to start Redis container: %v", err)
	}

	pgPool, err = database.NewDatabaseConnection(database.Connection{
		ConnectStr:    testtool.PostgresDSN(pgEP),
		RetryCount:    5,
		RetryInterval: 1,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect PostgreSQL: %v", err)
	}

	redisClient, err = database.NewRedisClient(database.RedisConnection{Addr: redisEP.Addr()})
	if err != nil {
		log.Fatalf("❌ Failed to connect Redis: %v", err)
	}

	code := m.Run()

	pgPool.Close()
	_ = redisClient.Close()
	containers.TerminateAll(ctx)
	os.Exit(code)
}

func TestMemberRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(pgPool)
	require.NoError(t, repo.EnsureSchema(ctx))

	now := time.Now().UTC().Truncate(time.Millisecond)
	alice := &domain.Member{
		MemberID: "member-alice", Nickname: "alice", DisplayName: "Alice", Email: "alice@example.com",
		Password: "hashed", Status: domain.MemberStatusOffline, LastSeen: now, CreatedAt: now,
	}
	require.NoError(t, repo.CreateUser(ctx, alice))

	dup := *alice
	dup.MemberID = "member-other"
	dup.Email = "other@example.com"
	assert.ErrorIs(t, repo.CreateUser(ctx, &dup), domain.ErrMemberDuplicate)

	email := "alice@example.com"
	found, err := repo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.DisplayName)

	missing := "nobody"
	_, err = repo.FindByMember(ctx, &domain.MemberQuery{Nickname: &missing})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	require.NoError(t, repo.UpdateMemberStatus(ctx, "member-alice", domain.MemberStatusOnline, now.Add(time.Minute)))
	members, err := repo.FindByIDs(ctx, []string{"member-alice", "ghost"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.MemberStatusOnline, members[0].Status)

	result, err := repo.Search(ctx, "LIC", "", 20)
	require.NoError(t, err)
	assert.Len(t, result, 1)

	result, err = repo.Search(ctx, "ali", "member-alice", 20)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionRepository(database.NewRedisRepository[domain.MemberSession](redisClient))

	s := domain.MemberSession{SessionID: "sid-1", MemberID: "member-alice", CreatedAt: time.Now()}
	require.NoError(t, sessions.CreateSession(ctx, s, time.Minute))

	got, err := sessions.FindSession(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "member-alice", got.MemberID)

	ttl, err := redisClient.TTL(ctx, "member:session:sid-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, sessions.ExpireSession(ctx, "sid-1"))
	_, err = sessions.FindSession(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
