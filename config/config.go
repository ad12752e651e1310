package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
)

// Provider holds client credentials for one identity provider
type Provider struct {
	ClientID     string
	ClientSecret string
	CallbackURI  string
	ResponseMode string
}

// Config is the process configuration, read from the environment.
type Config struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURI  string `env:"GOOGLE_CALLBACK_URI"`
	GoogleResponseMode string `env:"GOOGLE_RESPONSE_MODE" envDefault:"redirect"`

	KakaoClientID     string `env:"KAKAO_CLIENT_ID"`
	KakaoClientSecret string `env:"KAKAO_CLIENT_SECRET"`
	KakaoCallbackURI  string `env:"KAKAO_CALLBACK_URI"`
	KakaoResponseMode string `env:"KAKAO_RESPONSE_MODE" envDefault:"json"`

	ServiceBaseURL  string `env:"SERVICE_BASE_URL"`
	FrontendBaseURL string `env:"FRONTEND_BASE_URL"`
	HandoffSecret   string `env:"HANDOFF_SECRET"`
	CookieSecure    bool   `env:"COOKIE_SECURE" envDefault:"false"`

	// OAuthStateSecret keys the encrypted OAuth state, JWTSigningKey is
	// used when it is empty.
	OAuthStateSecret string        `env:"OAUTH_STATE_SECRET"`
	OAuthStateTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	JWTSigningKey   string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer       string        `env:"JWT_ISSUER"`
	JWTAudience     []string      `env:"JWT_AUDIENCE" envSeparator:","`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"5m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"24h"`
	OutboundTimeout time.Duration `env:"OUTBOUND_TIMEOUT" envDefault:"10s"`

	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8000"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:fedauth.db?cache=shared"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load reads a .env file when present, then the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	return Parse(env.Options{})
}

// Parse builds a Config with opts, tests pass an Environment map.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

var responseModes = []any{"redirect", "json"}

// Validate reports every missing or malformed key at once
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GoogleClientID, validation.Required),
		validation.Field(&c.GoogleClientSecret, validation.Required),
		validation.Field(&c.GoogleCallbackURI, validation.Required, is.URL),
		validation.Field(&c.GoogleResponseMode, validation.In(responseModes...)),
		validation.Field(&c.KakaoClientID, validation.Required),
		validation.Field(&c.KakaoCallbackURI, validation.Required, is.URL),
		validation.Field(&c.KakaoResponseMode, validation.In(responseModes...)),
		validation.Field(&c.ServiceBaseURL, validation.Required, is.URL),
		validation.Field(&c.FrontendBaseURL, validation.Required, is.URL),
		validation.Field(&c.JWTSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.AccessTokenTTL, validation.Min(time.Second)),
		validation.Field(&c.RefreshTokenTTL, validation.Min(time.Minute)),
		validation.Field(&c.OutboundTimeout, validation.Min(time.Millisecond)),
		validation.Field(&c.OAuthStateSecret, validation.Length(16, 0)),
		validation.Field(&c.OAuthStateTTL, validation.Min(time.Minute)),
	)
}

// StateSecret returns the secret for the OAuth state manager
func (c *Config) StateSecret() string {
	if c.OAuthStateSecret != "" {
		return c.OAuthStateSecret
	}
	return c.JWTSigningKey
}

func (c *Config) Google() Provider {
	return Provider{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		CallbackURI:  c.GoogleCallbackURI,
		ResponseMode: c.GoogleResponseMode,
	}
}

func (c *Config) Kakao() Provider {
	return Provider{
		ClientID:     c.KakaoClientID,
		ClientSecret: c.KakaoClientSecret,
		CallbackURI:  c.KakaoCallbackURI,
		ResponseMode: c.KakaoResponseMode,
	}
}

// UsePostgres reports whether DatabaseDSN points at postgres
func (c *Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseDSN, "postgres://") || strings.HasPrefix(c.DatabaseDSN, "postgresql://")
}
