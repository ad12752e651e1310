package social

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flowFixture struct {
	login    *FederatedLogin
	store    IdentityStore
	provider *fakeProvider
	handoff  *recordingHandoff
	tokens   *auth.TokenService
	events   *[]auth.ActivityEvent
}

func newFlow(t *testing.T, provider *fakeProvider, opts ...FederatedLoginOption) (*flowFixture, func(string) int) {
	t.Helper()
	store, db := setupStore(t)
	handoff := &recordingHandoff{}
	tokens := newTestTokens()

	var (
		mu     sync.Mutex
		events []auth.ActivityEvent
	)
	sink := auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	})

	opts = append([]FederatedLoginOption{
		WithFederatedLogger(nopLogger{}),
		WithActivitySink(sink),
	}, opts...)

	login := NewFederatedLogin(
		NewRegistry(provider),
		NewReconciler(store, handoff, WithReconcilerLogger(nopLogger{})),
		store,
		tokens,
		opts...,
	)

	return &flowFixture{
			login:    login,
			store:    store,
			provider: provider,
			handoff:  handoff,
			tokens:   tokens,
			events:   &events,
		}, func(table string) int {
			return countRows(t, db, table)
		}
}

func TestCompleteRejectsEmptyCode(t *testing.T) {
	provider := &fakeProvider{name: auth.ProviderGoogle, email: "a@example.com"}
	f, _ := newFlow(t, provider)

	_, err := f.login.Complete(context.Background(), auth.ProviderGoogle, "  ")
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, provider.exchangeCalls)
}

func TestCompleteUnknownProvider(t *testing.T) {
	f, _ := newFlow(t, &fakeProvider{name: auth.ProviderGoogle})

	_, err := f.login.Complete(context.Background(), "myspace", "code")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestCompleteExchangeFailureLeavesStoreUntouched(t *testing.T) {
	provider := &fakeProvider{
		name: auth.ProviderGoogle,
		exchange: func(context.Context, string) (*Token, error) {
			return nil, NewProviderError(auth.ProviderGoogle, OperationExchange, http.StatusBadRequest, "invalid_grant", "", nil, nil)
		},
	}
	f, count := newFlow(t, provider)

	out, err := f.login.Complete(context.Background(), auth.ProviderGoogle, "stale")
	require.NoError(t, err)

	assert.Equal(t, UpstreamRejected, out.Kind)
	assert.Equal(t, ReasonTokenExchangeFailed, out.Reason)
	assert.Equal(t, http.StatusBadRequest, out.UpstreamStatus)
	assert.True(t, auth.HasTextCode(out.Err, TextCodeTokenExchangeFail))
	assert.Zero(t, provider.profileCalls)
	assert.Zero(t, f.handoff.count())
	assert.Zero(t, count("users"))

	require.Len(t, *f.events, 1)
	assert.Equal(t, auth.ActivityEventFederatedReject, (*f.events)[0].EventType)
	assert.Equal(t, "token_exchange_failed", (*f.events)[0].Metadata["reason"])
}

func TestCompleteProfileFailure(t *testing.T) {
	provider := &fakeProvider{
		name: auth.ProviderKakao,
		profile: func(context.Context, *Token) (*Profile, error) {
			return nil, NewProviderError(auth.ProviderKakao, OperationProfile, http.StatusUnauthorized, "-401", "", nil, nil)
		},
	}
	f, count := newFlow(t, provider)

	out, err := f.login.Complete(context.Background(), auth.ProviderKakao, "code")
	require.NoError(t, err)

	assert.Equal(t, UpstreamRejected, out.Kind)
	assert.Equal(t, ReasonProfileFetchFailed, out.Reason)
	assert.Zero(t, count("users"))
}

func TestCompleteProfileWithoutEmail(t *testing.T) {
	provider := &fakeProvider{name: auth.ProviderKakao, email: ""}
	f, count := newFlow(t, provider)

	out, err := f.login.Complete(context.Background(), auth.ProviderKakao, "code")
	require.NoError(t, err)

	assert.Equal(t, UpstreamRejected, out.Kind)
	assert.Equal(t, ReasonProfileFetchFailed, out.Reason)
	assert.Zero(t, count("users"))
}

func TestCompleteExchangeTimeout(t *testing.T) {
	provider := &fakeProvider{
		name: auth.ProviderGoogle,
		exchange: func(ctx context.Context, _ string) (*Token, error) {
			<-ctx.Done()
			return nil, NewProviderError(auth.ProviderGoogle, OperationExchange, 0, "", "", ctx.Err(), nil)
		},
	}
	f, _ := newFlow(t, provider, WithOutboundTimeout(20*time.Millisecond))

	out, err := f.login.Complete(context.Background(), auth.ProviderGoogle, "code")
	require.NoError(t, err)

	assert.Equal(t, UpstreamRejected, out.Kind)
	assert.Equal(t, ReasonTimeout, out.Reason)
}

func TestCompleteSignedInMintsTokensFromCurrentRow(t *testing.T) {
	provider := &fakeProvider{name: auth.ProviderGoogle, email: "alice@example.com", subject: "g-1"}
	f, _ := newFlow(t, provider)

	user := auth.NewUser("alice@example.com", "alice")
	user.IsAdmin = true
	_, err := f.store.CreateAccount(context.Background(), user, auth.NewSocialAccount(user, auth.ProviderGoogle, "g-1", nil))
	require.NoError(t, err)

	out, err := f.login.Complete(context.Background(), auth.ProviderGoogle, "code-1")
	require.NoError(t, err)
	require.Equal(t, SignedIn, out.Kind)
	require.NotEmpty(t, out.Tokens.Access)
	require.NotEmpty(t, out.Tokens.Refresh)

	access, err := f.tokens.Decode(out.Tokens.Access)
	require.NoError(t, err)
	refresh, err := f.tokens.Decode(out.Tokens.Refresh)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), access.UserID)
	assert.Equal(t, "alice@example.com", access.Email)
	assert.True(t, access.IsAdmin)
	assert.Equal(t, access.UserID, refresh.UserID)
	assert.Equal(t, access.Issued(), refresh.Issued())
	assert.Equal(t, auth.TokenTypeAccess, access.TokenType)
	assert.Equal(t, auth.TokenTypeRefresh, refresh.TokenType)

	require.Len(t, *f.events, 1)
	assert.Equal(t, auth.ActivityEventFederatedLogin, (*f.events)[0].EventType)
	assert.Equal(t, user.ID.String(), (*f.events)[0].UserID)
}

func TestCompleteIsIdempotentForReturningUser(t *testing.T) {
	provider := &fakeProvider{name: auth.ProviderGoogle, email: "bob@example.com", subject: "g-2"}
	f, count := newFlow(t, provider)

	first, err := f.login.Complete(context.Background(), auth.ProviderGoogle, "code-1")
	require.NoError(t, err)
	require.Equal(t, NewAccountCreated, first.Kind)
	assert.Empty(t, first.Tokens.Access)

	for _, code := range []string{"code-2", "code-3"} {
		out, err := f.login.Complete(context.Background(), auth.ProviderGoogle, code)
		require.NoError(t, err)
		assert.Equal(t, SignedIn, out.Kind)
		assert.Equal(t, first.User.ID, out.User.ID)
	}

	assert.Equal(t, 1, count("users"))
	assert.Equal(t, 1, count("social_accounts"))
}

func TestCompleteConcurrentFirstLoginsCreateOneAccount(t *testing.T) {
	provider := &fakeProvider{name: auth.ProviderKakao, email: "race@example.com", subject: "k-race"}
	f, count := newFlow(t, provider)

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.login.Complete(context.Background(), auth.ProviderKakao, "code")
			assert.NoError(t, err)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, outcomes, workers)
	for _, out := range outcomes {
		assert.Contains(t, []OutcomeKind{NewAccountCreated, SignedIn}, out.Kind)
	}
	assert.Equal(t, 1, count("users"))
	assert.Equal(t, 1, count("social_accounts"))
}

func TestBeginURL(t *testing.T) {
	f, _ := newFlow(t, &fakeProvider{name: auth.ProviderGoogle})

	u, err := f.login.BeginURL(auth.ProviderGoogle, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://provider.test/authorize?state=xyz", u)

	_, err = f.login.BeginURL("nope", "xyz")
	require.ErrorIs(t, err, ErrProviderNotFound)
}
