package social

import (
	"context"
	"time"
)

// Provider is an OAuth2 identity provider seen from the consumer side:
// one code exchange and one profile fetch per login.
type Provider interface {
	// Name returns the provider identifier (e.g. "google", "kakao").
	Name() string

	// AuthCodeURL returns the consent page URL the browser is sent to.
	AuthCodeURL(state string) string

	// ExchangeCodeForToken trades an authorization code for an access token.
	ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (*Token, error)

	// FetchProfile reads the user's profile with the access token.
	FetchProfile(ctx context.Context, token *Token) (*Profile, error)
}

// Token represents an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// Profile is the provider profile reduced to what reconciliation needs.
// Attributes are passed through unchanged.
type Profile struct {
	Email          string
	Provider       string
	ProviderUserID string
	Attributes     map[string]any
}
