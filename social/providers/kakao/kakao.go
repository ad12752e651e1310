package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-fedauth/social"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL    = "https://kauth.kakao.com/oauth/authorize"
	defaultTokenURL   = "https://kauth.kakao.com/oauth/token"
	defaultProfileURL = "https://kapi.kakao.com/v2/user/me"
	defaultTimeout    = 10 * time.Second
)

// Config holds Kakao OAuth configuration. ClientSecret is optional, Kakao
// only checks it when the app enables it.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Kakao scopes.
func DefaultScopes() []string {
	return []string{"account_email"}
}

// Provider implements social.Provider for Kakao.
type Provider struct {
	config     Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New creates a new Kakao provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
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
	return auth.ProviderKakao
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ExchangeCodeForToken implements social.Provider.
func (p *Provider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (*social.Token, error) {
	return social.ExchangeCode(ctx, p.Name(), p.oauth, p.httpClient, code, redirectURI)
}

// FetchProfile implements social.Provider.
func (p *Provider) FetchProfile(ctx context.Context, token *social.Token) (*social.Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, providerError(http.StatusUnauthorized, "missing_access_token", "missing access token", nil, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.ProfileURL, nil)
	if err != nil {
		return nil, providerError(0, "", "", err, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

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
		code, description, raw := parseKakaoError(body)
		return nil, providerError(resp.StatusCode, code, description, nil, raw)
	}

	var user kakaoUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, providerError(resp.StatusCode, "invalid_response", "failed to decode profile response", err, nil)
	}
	if user.Msg != "" || user.Code != 0 {
		code, description, raw := parseKakaoError(body)
		return nil, providerError(resp.StatusCode, code, description, nil, raw)
	}

	return mapProfile(&user), nil
}

type kakaoError struct {
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
	Msg       string `json:"msg"`
	Code      int    `json:"code"`
}

func parseKakaoError(body []byte) (string, string, map[string]any) {
	var e kakaoError
	if err := json.Unmarshal(body, &e); err == nil {
		switch {
		case e.Error != "" || e.ErrorDesc != "":
			return e.Error, e.ErrorDesc, map[string]any{
				"error":             e.Error,
				"error_description": e.ErrorDesc,
			}
		case e.Msg != "" || e.Code != 0:
			return fmt.Sprintf("%d", e.Code), e.Msg, map[string]any{
				"code": e.Code,
				"msg":  e.Msg,
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "kakao request failed"
	}
	return "", msg, nil
}

func providerError(status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return social.NewProviderError(auth.ProviderKakao, social.OperationProfile, status, code, description, err, raw)
}
