package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	Configure("test_secret", "chat_test", time.Hour)

	tokenStr, err := GenerateJWT("member-1")
	require.NoError(t, err)

	claims, err := ParseJWT(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "member-1", claims.MemberID())
	assert.Equal(t, "chat_test", claims.Issuer)
	assert.NotEmpty(t, claims.SessionID())

	second, err := GenerateJWT("member-1")
	require.NoError(t, err)
	secondClaims, err := ParseJWT(second)
	require.NoError(t, err)
	assert.NotEqual(t, claims.SessionID(), secondClaims.SessionID())
}

func TestParseExpired(t *testing.T) {
	Configure("test_secret", "", 0)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "member-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test_secret"))
	require.NoError(t, err)

	_, err = ParseJWT(tokenStr)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestParseInvalid(t *testing.T) {
	Configure("test_secret", "", 0)

	_, err := ParseJWT("not-a-token")
	assert.ErrorIs(t, err, ErrInvalid)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "member-1",
	}}).SignedString([]byte("another_secret"))
	require.NoError(t, err)

	_, err = ParseJWT(other)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseMissingSubject(t *testing.T) {
	Configure("test_secret", "", 0)

	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("test_secret"))
	require.NoError(t, err)

	_, err = ParseJWT(tokenStr)
	assert.ErrorIs(t, err, ErrInvalid)
}
