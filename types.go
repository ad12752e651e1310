package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Logger is the structured logger used across the module. Messages are
// followed by alternating key/value pairs, glog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserStore is the subset of the identity store used by direct
// authentication and token refresh.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (UserLookup, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
}

// UserDirectory backs the profile update and admin user routes. ListUsers
// never returns admin accounts.
type UserDirectory interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error)
	UpdateUser(ctx context.Context, user *User) (*User, error)
}

// Denylist tracks revoked refresh token IDs until they expire naturally.
// Revoke is a single atomic claim and returns ErrTokenRevoked when the ID
// is already on the list.
type Denylist interface {
	Revoke(ctx context.Context, jti string, claims *SessionClaims) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + format(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + format(msg, args...))
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, "%v", args[i])
		}
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
