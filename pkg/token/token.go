package token

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired token exp is in the past
	ErrExpired = errors.New("token expired")
	// ErrInvalid token malformed, bad signature or missing subject
	ErrInvalid = errors.New("invalid token")
)

// Claims structure for custom claims in JWT, sub = member id
type Claims struct {
	jwt.RegisteredClaims
}

// MemberID member id carried in sub
func (c *Claims) MemberID() string {
	return c.Subject
}

// SessionID session key carried in jti
func (c *Claims) SessionID() string {
	return c.ID
}

// Secret Key for JWT signing and validation
var (
	mu              sync.RWMutex
	jwtSecret       = []byte("secure_secret_key")
	jwtIssuer       = "chat_service"
	tokenExpiration = 30 * 24 * time.Hour
)

// Configure set secret, issuer and expiration, empty values keep the current setting
func Configure(secret, issuer string, expiration time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if issuer != "" {
		jwtIssuer = issuer
	}
	if expiration > 0 {
		tokenExpiration = expiration
	}
}

// Expiration token lifetime
func Expiration() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return tokenExpiration
}

func settings() ([]byte, string, time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	return jwtSecret, jwtIssuer, tokenExpiration
}

// GenerateJWT generates a JWT token
func GenerateJWT(memberID string) (string, error) {
	secret, issuer, expiration := settings()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   memberID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseJWT parses a JWT and extracts the Claims, errors are ErrExpired or ErrInvalid
func ParseJWT(tokenStr string) (*Claims, error) {
	secret, _, _ := settings()

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Check if the signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
