package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Refresher rotates refresh tokens and revokes them on logout
type Refresher struct {
	tokens   *TokenService
	users    UserStore
	denylist Denylist
	logger   Logger
}

// NewRefresher wires a refresher. A nil denylist falls back to an in-memory one.
func NewRefresher(tokens *TokenService, users UserStore, denylist Denylist, logger Logger) *Refresher {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &Refresher{
		tokens:   tokens,
		users:    users,
		denylist: denylist,
		logger:   logger,
	}
}

// Refresh validates a refresh token and mints a new pair from the current
// user row. The presented refresh token is consumed before the new pair is
// minted, so concurrent refreshes of one token yield a single pair.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := r.checkRefresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return TokenPair{}, withSource(ErrTokenMalformed, err)
	}

	user, err := r.users.FindUserByID(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, ErrUserInactive
	}

	if err := r.denylist.Revoke(ctx, claims.ID, claims); err != nil {
		if !HasTextCode(err, TextCodeTokenRevoked) {
			r.logger.Error("failed to revoke rotated refresh token", "error", err, "user_id", claims.UserID)
		}
		return TokenPair{}, err
	}

	return r.tokens.Mint(user)
}

// Revoke denylists a refresh token until it expires
func (r *Refresher) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := r.checkRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return r.denylist.Revoke(ctx, claims.ID, claims)
}

func (r *Refresher) checkRefresh(ctx context.Context, refreshToken string) (*SessionClaims, error) {
	claims, err := r.tokens.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefresh() {
		return nil, ErrWrongTokenType
	}

	revoked, err := r.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// MemoryDenylist keeps revoked token IDs in process memory
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

func (m *MemoryDenylist) Revoke(_ context.Context, jti string, claims *SessionClaims) error {
	if jti == "" {
		return ErrNoEmptyString
	}

	now := m.now()
	expires := now.Add(DefaultRefreshTTL)
	if claims != nil && !claims.Expires().IsZero() {
		expires = claims.Expires()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.entries[jti]; ok && now.Before(current) {
		return ErrTokenRevoked
	}
	m.entries[jti] = expires
	m.sweep()
	return nil
}

func (m *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	return m.now().Before(expires), nil
}

// sweep drops expired entries, callers hold the lock
func (m *MemoryDenylist) sweep() {
	now := m.now()
	for jti, expires := range m.entries {
		if !now.Before(expires) {
			delete(m.entries, jti)
		}
	}
}
