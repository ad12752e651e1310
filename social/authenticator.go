package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-fedauth"
)

// FederatedLogin drives one provider callback: code exchange, profile
// fetch, reconciliation and, for a returning user, token minting.
type FederatedLogin struct {
	providers    *Registry
	reconciler   *Reconciler
	store        IdentityStore
	tokens       *auth.TokenService
	logger       auth.Logger
	activitySink auth.ActivitySink
	timeout      time.Duration
	redirectURIs map[string]string
}

// FederatedLoginOption configures FederatedLogin.
type FederatedLoginOption func(*FederatedLogin)

// WithFederatedLogger sets the logger
func WithFederatedLogger(logger auth.Logger) FederatedLoginOption {
	return func(f *FederatedLogin) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithActivitySink sets the activity sink for audit logging.
func WithActivitySink(sink auth.ActivitySink) FederatedLoginOption {
	return func(f *FederatedLogin) {
		f.activitySink = sink
	}
}

// WithOutboundTimeout bounds each provider call
func WithOutboundTimeout(d time.Duration) FederatedLoginOption {
	return func(f *FederatedLogin) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRedirectURI sets the redirect_uri sent with the code exchange for provider.
func WithRedirectURI(provider, uri string) FederatedLoginOption {
	return func(f *FederatedLogin) {
		f.redirectURIs[provider] = uri
	}
}

// NewFederatedLogin creates a new federated login flow.
func NewFederatedLogin(
	providers *Registry,
	reconciler *Reconciler,
	store IdentityStore,
	tokens *auth.TokenService,
	opts ...FederatedLoginOption,
) *FederatedLogin {
	f := &FederatedLogin{
		providers:    providers,
		reconciler:   reconciler,
		store:        store,
		tokens:       tokens,
		logger:       auth.DefaultLogger(),
		timeout:      DefaultOutboundTimeout,
		redirectURIs: map[string]string{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// BeginURL returns the provider consent URL.
func (f *FederatedLogin) BeginURL(providerName, state string) (string, error) {
	provider, err := f.providers.Get(providerName)
	if err != nil {
		return "", err
	}
	return provider.AuthCodeURL(state), nil
}

// Complete finishes the flow after the provider redirected back with code.
// Upstream failures are reported as UpstreamRejected outcomes; the returned
// error is reserved for invalid input and store failures.
func (f *FederatedLogin) Complete(ctx context.Context, providerName, code string) (Outcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Outcome{}, ErrInvalidRequest
	}

	provider, err := f.providers.Get(providerName)
	if err != nil {
		return Outcome{}, err
	}

	token, err := f.exchange(ctx, provider, code)
	if err != nil {
		out := upstreamRejected(providerName, ReasonTokenExchangeFailed, ErrTokenExchangeFailed, OperationExchange, err)
		f.finish(ctx, out, nil)
		return out, nil
	}

	profile, err := f.fetchProfile(ctx, provider, token)
	if err != nil {
		out := upstreamRejected(providerName, ReasonProfileFetchFailed, ErrProfileFetchFailed, OperationProfile, err)
		f.finish(ctx, out, nil)
		return out, nil
	}
	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		out := upstreamRejected(providerName, ReasonProfileFetchFailed, ErrProfileFetchFailed, OperationProfile,
			NewProviderError(providerName, OperationProfile, 0, "missing_email", "profile has no email", nil, nil))
		f.finish(ctx, out, nil)
		return out, nil
	}

	out, err := f.reconciler.Reconcile(ctx, Attempt{
		Provider:    providerName,
		Profile:     profile,
		AccessToken: token.AccessToken,
		Code:        code,
	})
	if err != nil {
		f.logger.Error("federated login reconciliation failed", "provider", providerName, "error", err)
		return Outcome{}, err
	}

	if out.Kind == SignedIn {
		// claims come from the row as it is now, not from the lookup
		user, err := f.store.FindUserByID(ctx, out.User.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("reload user: %w", err)
		}
		if !user.IsActive {
			return Outcome{}, auth.ErrUserInactive
		}
		pair, err := f.tokens.Mint(user)
		if err != nil {
			return Outcome{}, fmt.Errorf("mint tokens: %w", err)
		}
		out.User = user
		out.Tokens = pair
	}

	f.finish(ctx, out, profile)
	return out, nil
}

func (f *FederatedLogin) exchange(ctx context.Context, provider Provider, code string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return provider.ExchangeCodeForToken(ctx, code, f.redirectURIs[provider.Name()])
}

func (f *FederatedLogin) fetchProfile(ctx context.Context, provider Provider, token *Token) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return provider.FetchProfile(ctx, token)
}

func (f *FederatedLogin) finish(ctx context.Context, out Outcome, profile *Profile) {
	if out.Kind == UpstreamRejected {
		f.logger.Warn("federated login", out.LogArgs()...)
	} else {
		f.logger.Info("federated login", out.LogArgs()...)
	}

	event := auth.ActivityEvent{
		Provider: out.Provider,
		Metadata: map[string]any{"outcome": out.Kind.String()},
	}
	if out.User != nil {
		event.UserID = out.User.ID.String()
	}
	if profile != nil && profile.ProviderUserID != "" {
		event.Metadata["provider_user_id"] = profile.ProviderUserID
	}

	switch out.Kind {
	case SignedIn:
		event.EventType = auth.ActivityEventFederatedLogin
	case NewAccountCreated:
		event.EventType = auth.ActivityEventFederatedSignup
	case ProviderMismatch:
		event.EventType = auth.ActivityEventFederatedReject
		event.Metadata["existing_provider"] = out.ExistingProvider
	case LinkageMissing:
		event.EventType = auth.ActivityEventFederatedReject
	case UpstreamRejected:
		event.EventType = auth.ActivityEventFederatedReject
		event.Metadata["reason"] = string(out.Reason)
	}

	auth.EmitActivity(ctx, f.activitySink, f.logger, event)
}
