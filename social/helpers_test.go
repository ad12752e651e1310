package social

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-fedauth/repository"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func setupStore(t *testing.T) (*repository.IdentityStore, *bun.DB) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(context.Background(), bunDB, nopLogger{}))

	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	return repository.NewIdentityStore(bunDB, repository.WithStoreLogger(nopLogger{})), bunDB
}

func countRows(t *testing.T, db *bun.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.NewRaw("SELECT COUNT(*) FROM "+table).Scan(context.Background(), &n))
	return n
}

func seedAccount(t *testing.T, store *repository.IdentityStore, email string, providers ...string) *auth.User {
	t.Helper()
	ctx := context.Background()

	user := auth.NewUser(email, "")
	if len(providers) == 0 {
		user.PasswordHash = "hash"
		_, err := store.CreateUser(ctx, user)
		require.NoError(t, err)
		return user
	}

	_, err := store.CreateAccount(ctx, user, auth.NewSocialAccount(user, providers[0], "sub-"+providers[0], nil))
	require.NoError(t, err)
	return user
}

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService(auth.TokenConfig{SigningKey: []byte("test-signing-key")},
		auth.WithTokenLogger(nopLogger{}))
}

// fakeProvider answers with canned values or runs the given funcs
type fakeProvider struct {
	name     string
	email    string
	subject  string
	exchange func(ctx context.Context, code string) (*Token, error)
	profile  func(ctx context.Context, token *Token) (*Profile, error)

	mu            sync.Mutex
	exchangeCalls int
	profileCalls  int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (p *fakeProvider) ExchangeCodeForToken(ctx context.Context, code, _ string) (*Token, error) {
	p.mu.Lock()
	p.exchangeCalls++
	p.mu.Unlock()
	if p.exchange != nil {
		return p.exchange(ctx, code)
	}
	return &Token{AccessToken: "access-" + code, TokenType: "Bearer"}, nil
}

func (p *fakeProvider) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	p.mu.Lock()
	p.profileCalls++
	p.mu.Unlock()
	if p.profile != nil {
		return p.profile(ctx, token)
	}
	return &Profile{
		Email:          p.email,
		Provider:       p.name,
		ProviderUserID: p.subject,
		Attributes:     map[string]any{"email": p.email},
	}, nil
}

// recordingHandoff records calls and returns err
type recordingHandoff struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (h *recordingHandoff) Finish(_ context.Context, provider, accessToken, code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, provider+":"+accessToken+":"+code)
	return h.err
}

func (h *recordingHandoff) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}
