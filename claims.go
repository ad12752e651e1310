package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// SessionClaims is the claim set carried by both tokens of a pair.
// Only exp, jti and token_type differ between access and refresh.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	TokenType TokenType `json:"token_type"`
}

// Expires returns the expiry time, zero when unset
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued at time, zero when unset
func (c *SessionClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

func (c *SessionClaims) IsRefresh() bool {
	return c.TokenType == TokenTypeRefresh
}

// TokenPair is what a successful login returns
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
