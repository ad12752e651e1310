package social

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController handles the federated login routes.
type HTTPController struct {
	login      *FederatedLogin
	finish     *FinishController
	config     HTTPConfig
	states     StateManager
	responders map[string]Responder
	logger     auth.Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// FrontendBaseURL is the redirect target for browser flows
	FrontendBaseURL string

	// CookieSecure sets the Secure flag on the session cookie
	CookieSecure bool

	// ResponseModes maps provider name to "redirect" or "json".
	// Providers not listed use DefaultResponseMode.
	ResponseModes map[string]string

	// DefaultResponseMode (default: "redirect")
	DefaultResponseMode string

	// States encodes the per-request state sent to the provider and checks
	// it on the callback. When nil an ephemeral manager is used, which only
	// works for a single instance.
	States StateManager

	// StateTTL is the lifetime of the state cookie (default: DefaultStateTTL)
	StateTTL time.Duration

	Logger auth.Logger
}

// NewHTTPController creates a new federated login HTTP controller. finish
// may be nil when the hand-off endpoint is served elsewhere.
func NewHTTPController(login *FederatedLogin, finish *FinishController, cfg HTTPConfig) *HTTPController {
	if cfg.DefaultResponseMode == "" {
		cfg.DefaultResponseMode = ResponseModeRedirect
	}
	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.States == nil {
		cfg.Logger.Warn("no oauth state secret configured, using an ephemeral key")
		cfg.States = NewEphemeralStateManager(cfg.StateTTL)
	}

	c := &HTTPController{
		login:      login,
		finish:     finish,
		config:     cfg,
		states:     cfg.States,
		responders: map[string]Responder{},
		logger:     cfg.Logger,
	}
	for provider, mode := range cfg.ResponseModes {
		c.responders[provider] = ResponderFor(mode, cfg.FrontendBaseURL, cfg.CookieSecure)
	}
	return c
}

// RegisterRoutes registers the federated login routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/users/:provider/login/", c.BeginAuth)
	group.Get("/users/:provider/callback/", c.Callback)
	if c.finish != nil {
		group.Post("/users/:provider/login/finish/", c.finish.Finish)
	}
}

// BeginAuth sends the browser to the provider consent page. The state
// parameter is encrypted and its nonce is pinned in StateCookieName.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	provider := ctx.Param("provider")

	state := &OAuthState{Provider: provider}
	encoded, err := c.states.Encode(state)
	if err != nil {
		c.logger.Error("oauth state encode failed", "provider", provider, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{"err_msg": "error"})
	}

	authURL, err := c.login.BeginURL(provider, encoded)
	if err != nil {
		if auth.HasTextCode(err, TextCodeProviderNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]any{"err_msg": "unknown_provider"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]any{"err_msg": "error"})
	}

	ctx.Cookie(&router.Cookie{
		Name:     StateCookieName,
		Value:    state.Nonce,
		Path:     "/users/",
		MaxAge:   int(c.config.StateTTL / time.Second),
		Secure:   c.config.CookieSecure,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return ctx.Redirect(authURL, http.StatusFound)
}

// Callback handles the provider redirect carrying the authorization code.
// The state must decode, name this provider and match the state cookie.
func (c *HTTPController) Callback(ctx router.Context) error {
	provider := ctx.Param("provider")

	if err := c.verifyState(ctx, provider); err != nil {
		c.logger.Warn("federated callback state rejected", "provider", provider, "error", err)
		return c.responderFor(provider).Respond(ctx, provider, Outcome{}, err)
	}

	code := ctx.Query("code")
	out, err := c.login.Complete(ctx.Context(), provider, code)
	if err != nil {
		c.logger.Error("federated callback failed", "provider", provider, "error", err)
	}

	return c.responderFor(provider).Respond(ctx, provider, out, err)
}

func (c *HTTPController) verifyState(ctx router.Context, provider string) error {
	raw := ctx.Query("state")
	if raw == "" {
		return ErrInvalidState
	}

	state, err := c.states.Decode(raw)
	if err != nil {
		return err
	}
	if state.Provider != provider {
		return ErrInvalidState
	}

	nonce := ctx.Cookies(StateCookieName)
	if nonce == "" || subtle.ConstantTimeCompare([]byte(nonce), []byte(state.Nonce)) != 1 {
		return ErrInvalidState
	}
	return nil
}

func (c *HTTPController) responderFor(provider string) Responder {
	if r, ok := c.responders[provider]; ok {
		return r
	}
	return ResponderFor(c.config.DefaultResponseMode, c.config.FrontendBaseURL, c.config.CookieSecure)
}
