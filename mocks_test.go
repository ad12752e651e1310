package auth_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

const testSigningKey = "unit-test-signing-key"

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// memUsers is an in-memory auth.UserStore
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*auth.User
}

func newMemUsers(users ...*auth.User) *memUsers {
	m := &memUsers{users: map[uuid.UUID]*auth.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) FindUserByEmail(_ context.Context, email string) (auth.UserLookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = auth.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return auth.UserFound(u), nil
		}
	}
	return auth.UserNotFound(), nil
}

func (m *memUsers) FindUserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, auth.ErrIdentityNotFound
}

func (m *memUsers) CreateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, auth.ErrEmailTaken
		}
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUsers) ListUsers(_ context.Context, limit, offset int) ([]*auth.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*auth.User
	for _, u := range m.users {
		if !u.IsAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := len(out)
	if offset >= total {
		return []*auth.User{}, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

func (m *memUsers) UpdateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return nil, auth.ErrIdentityNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

// MockDenylist implements auth.Denylist
type MockDenylist struct {
	mock.Mock
}

func (m *MockDenylist) Revoke(ctx context.Context, jti string, claims *auth.SessionClaims) error {
	args := m.Called(ctx, jti, claims)
	return args.Error(0)
}

func (m *MockDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

// fixedClock returns a time source that only moves when advanced
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTokens(opts ...auth.TokenOption) *auth.TokenService {
	opts = append([]auth.TokenOption{auth.WithTokenLogger(nopLogger{})}, opts...)
	return auth.NewTokenService(auth.TokenConfig{SigningKey: []byte(testSigningKey)}, opts...)
}

// cheapHasher keeps bcrypt tests fast
func cheapHasher() auth.BcryptHasher {
	return auth.NewBcryptHasher(4)
}

func activeUser(email string) *auth.User {
	return auth.NewUser(email, "")
}
