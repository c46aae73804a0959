// Package token JWT per-RPC credentials and their validation
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	MetadataKey = "authorization"
	scheme      = "Bearer"

	// renewBefore a cached token is reissued this long before it expires
	renewBefore = 10 * time.Second
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Issue signs a token for subject valid for ttl
func Issue(secret []byte, subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// Validate checks an "authorization" value and returns the token subject
func Validate(secret []byte, value string) (string, error) {
	if value == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || parts[0] != scheme {
		return "", fmt.Errorf("%w: bad scheme", ErrInvalidToken)
	}

	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Tokens grpc credentials.PerRPCCredentials signing its own tokens
type Tokens struct {
	secret  []byte
	subject string
	ttl     time.Duration

	// cached token, reissued shortly before expiry
	mu            sync.Mutex
	tokenMetadata map[string]string
	tokenExpiry   time.Time
}

func NewTokens(secret, subject string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret:  []byte(secret),
		subject: subject,
		ttl:     ttl,
	}
}

func (t *Tokens) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tokenMetadata != nil && time.Until(t.tokenExpiry) > renewBefore {
		return t.tokenMetadata, nil
	}
	signed, expiry, err := Issue(t.secret, t.subject, t.ttl)
	if err != nil {
		return nil, err
	}
	t.tokenMetadata = map[string]string{MetadataKey: scheme + " " + signed}
	t.tokenExpiry = expiry
	return t.tokenMetadata, nil
}

func (t *Tokens) RequireTransportSecurity() bool {
	return false
}
