// Package token issues and verifies signed session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are malformed, expired or forged.
var ErrInvalidToken = errors.New("invalid session token")

const issuer = "marketwatch"

// Manager signs session ids with HMAC-SHA256.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Claims is what a verified token carries.
type Claims struct {
	SessionID string
	ExpiresAt time.Time
}

// NewManager creates a token manager.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// ShouldRenew reports whether a token has used up half of its lifetime.
// Tokens slide: an active client is reissued one before the old one lapses.
func (m *Manager) ShouldRenew(c Claims) bool {
	return c.ExpiresAt.Sub(m.now()) < m.ttl/2
}

// Issue returns a signed token carrying the session id.
func (m *Manager) Issue(sessionID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the claims of a valid token.
func (m *Manager) Verify(tokenString string) (Claims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{SessionID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}
