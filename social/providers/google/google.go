package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-fedauth/social"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	defaultTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	defaultTimeout      = 10 * time.Second
)

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL      string
	TokenURL     string
	TokenInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"https://www.googleapis.com/auth/userinfo.email"}
}

// Provider implements social.Provider for Google.
type Provider struct {
	config     Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New creates a new Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = endpoints.Google.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = endpoints.Google.TokenURL
	}
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultTokenInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &Provider{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return auth.ProviderGoogle
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ExchangeCodeForToken implements social.Provider.
func (p *Provider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (*social.Token, error) {
	return social.ExchangeCode(ctx, p.Name(), p.oauth, p.httpClient, code, redirectURI)
}

// FetchProfile implements social.Provider. Google's tokeninfo endpoint
// validates the token and returns the email in one call. Tokens issued to
// another client ID are rejected.
func (p *Provider) FetchProfile(ctx context.Context, token *social.Token) (*social.Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, providerError(http.StatusUnauthorized, "missing_access_token", "missing access token", nil, nil)
	}

	endpoint := p.config.TokenInfoURL + "?" + url.Values{"access_token": {token.AccessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, providerError(0, "", "", err, nil)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, providerError(0, "", "", err, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(resp.StatusCode, "", "", err, nil)
	}

	if resp.StatusCode != http.StatusOK {
		code, description, raw := parseGoogleError(body)
		return nil, providerError(resp.StatusCode, code, description, nil, raw)
	}

	var info tokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, providerError(resp.StatusCode, "invalid_response", "failed to decode tokeninfo response", err, nil)
	}
	if info.Error != "" {
		return nil, providerError(resp.StatusCode, info.Error, info.ErrorDesc, nil, map[string]any{
			"error":             info.Error,
			"error_description": info.ErrorDesc,
		})
	}

	if aud := info.audience(); aud == "" || aud != p.config.ClientID {
		return nil, providerError(http.StatusUnauthorized, "audience_mismatch",
			"token was not issued to this client", nil, map[string]any{"audience": aud})
	}

	return mapProfile(&info), nil
}

type googleErrorResponse struct {
	Error string `json:"error"`
	Desc  string `json:"error_description"`
}

type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseGoogleError(body []byte) (string, string, map[string]any) {
	var plain googleErrorResponse
	if err := json.Unmarshal(body, &plain); err == nil && (plain.Error != "" || plain.Desc != "") {
		return plain.Error, plain.Desc, map[string]any{
			"error":             plain.Error,
			"error_description": plain.Desc,
		}
	}

	var api googleAPIError
	if err := json.Unmarshal(body, &api); err == nil && (api.Error.Message != "" || api.Error.Status != "") {
		code := api.Error.Status
		if code == "" && api.Error.Code != 0 {
			code = fmt.Sprintf("%d", api.Error.Code)
		}
		return code, api.Error.Message, map[string]any{
			"status":  api.Error.Status,
			"message": api.Error.Message,
			"code":    api.Error.Code,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "google request failed"
	}

	return "", msg, nil
}

func providerError(status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return social.NewProviderError(auth.ProviderGoogle, social.OperationProfile, status, code, description, err, raw)
}
