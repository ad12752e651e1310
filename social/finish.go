package social

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-router"
)

// FinishRequest is the hand-off form body
type FinishRequest struct {
	AccessToken string `json:"access_token" form:"access_token"`
	Code        string `json:"code" form:"code"`
}

// FinishController serves the hand-off endpoint. It validates the provider
// access token by fetching the profile with it and makes sure the local
// user and linkage exist.
type FinishController struct {
	providers *Registry
	store     IdentityStore
	secret    string
	timeout   time.Duration
	logger    auth.Logger
}

type FinishOption func(*FinishController)

// WithHandoffSecret requires callers to send the secret in X-Handoff-Secret
func WithHandoffSecret(secret string) FinishOption {
	return func(c *FinishController) {
		c.secret = secret
	}
}

func WithFinishLogger(logger auth.Logger) FinishOption {
	return func(c *FinishController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithFinishTimeout(d time.Duration) FinishOption {
	return func(c *FinishController) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewFinishController(providers *Registry, store IdentityStore, opts ...FinishOption) *FinishController {
	c := &FinishController{
		providers: providers,
		store:     store,
		timeout:   DefaultOutboundTimeout,
		logger:    auth.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Finish answers 200 when the account for the token's profile exists or was
// created, 401 when the provider rejects the token, 409 when the email
// belongs to a user without a linkage for this provider.
func (c *FinishController) Finish(ctx router.Context) error {
	providerName := ctx.Param("provider")

	if c.secret != "" {
		got := ctx.Header(HandoffSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(c.secret)) != 1 {
			c.logger.Warn("hand-off caller rejected", "provider", providerName, "error", ErrHandoffUnauthorized)
			return ctx.JSON(auth.HTTPStatus(ErrHandoffUnauthorized, http.StatusForbidden),
				map[string]any{"err_msg": ErrHandoffUnauthorized.TextCode})
		}
	}

	var req FinishRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.AccessToken) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]any{"err_msg": "invalid_request"})
	}

	provider, err := c.providers.Get(providerName)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, map[string]any{"err_msg": "unknown_provider"})
	}

	profile, err := c.fetchProfile(ctx.Context(), provider, req.AccessToken)
	if err != nil || profile == nil || profile.Email == "" {
		c.logger.Warn("hand-off token rejected", "provider", providerName, "error", err)
		return ctx.JSON(http.StatusUnauthorized, map[string]any{"err_msg": "invalid_token"})
	}

	if err := c.ensureAccount(ctx.Context(), providerName, profile); err != nil {
		if errors.Is(err, auth.ErrProviderMismatch) || errors.Is(err, auth.ErrLinkageMissing) {
			c.logger.Warn("hand-off linkage conflict", "provider", providerName, "error", err)
			return ctx.JSON(auth.HTTPStatus(err, http.StatusConflict), map[string]any{"err_msg": "linkage_conflict"})
		}
		c.logger.Error("hand-off account check failed", "provider", providerName, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{"err_msg": "error"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{"status_code": http.StatusOK})
}

func (c *FinishController) fetchProfile(ctx context.Context, provider Provider, accessToken string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return provider.FetchProfile(ctx, &Token{AccessToken: accessToken, TokenType: "Bearer"})
}

// ensureAccount returns auth.ErrLinkageMissing or auth.ErrProviderMismatch
// when the email belongs to a user without a linkage for provider.
func (c *FinishController) ensureAccount(ctx context.Context, provider string, profile *Profile) error {
	lookup, err := c.store.FindUserByEmail(ctx, profile.Email)
	if err != nil {
		return err
	}

	var linkages []*auth.SocialAccount
	if lookup.Found() {
		linkages, err = c.store.FindLinkages(ctx, lookup.User().ID)
		if err != nil {
			return err
		}
	} else {
		user := auth.NewUser(profile.Email, "")
		result, err := c.store.CreateAccount(ctx, user,
			auth.NewSocialAccount(user, provider, profile.ProviderUserID, profile.Attributes))
		if err != nil {
			return err
		}
		if result.Created {
			c.logger.Info("account created through hand-off", "provider", provider, "user_id", result.User.ID.String())
		}
		linkages = result.Linkages
	}

	switch {
	case len(linkages) == 0:
		return auth.ErrLinkageMissing
	case auth.FindLinkage(linkages, provider) == nil:
		return auth.ErrProviderMismatch
	}
	return nil
}
