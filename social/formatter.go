package social

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-router"
)

// SessionCookieName holds the token pair after a browser sign-in, see
// EncodeSessionCookie for the value format.
const SessionCookieName = "jwt_token"

// EncodeSessionCookie renders pair as unpadded base64url over its JSON form,
// which stays inside the cookie-octet character set.
func EncodeSessionCookie(pair auth.TokenPair) (string, error) {
	raw, err := json.Marshal(pair)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeSessionCookie reverses EncodeSessionCookie
func DecodeSessionCookie(value string) (auth.TokenPair, error) {
	var pair auth.TokenPair
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return pair, err
	}
	err = json.Unmarshal(raw, &pair)
	return pair, err
}

// Response modes
const (
	ResponseModeRedirect = "redirect"
	ResponseModeJSON     = "json"
)

// Responder renders a federated login result for one entry point.
// err is the error returned by FederatedLogin.Complete, if any.
type Responder interface {
	Respond(ctx router.Context, provider string, out Outcome, err error) error
}

// RedirectResponder always answers with a 302 to the frontend carrying a
// single status_code or err_msg query parameter. A signed in user also gets
// the SessionCookieName cookie holding the EncodeSessionCookie value.
type RedirectResponder struct {
	FrontendBaseURL string
	CookieSecure    bool
}

func (r RedirectResponder) Respond(ctx router.Context, provider string, out Outcome, err error) error {
	if err != nil {
		msg := "error"
		if isInvalidRequest(err) {
			msg = "invalid_request"
		}
		return r.redirect(ctx, "err_msg", msg)
	}

	switch out.Kind {
	case SignedIn:
		value, merr := EncodeSessionCookie(out.Tokens)
		if merr != nil {
			return r.redirect(ctx, "err_msg", "error")
		}
		ctx.Cookie(&router.Cookie{
			Name:     SessionCookieName,
			Value:    value,
			Path:     "/",
			Secure:   r.CookieSecure,
			HTTPOnly: true,
			SameSite: "Lax",
		})
		return r.redirect(ctx, "status_code", strconv.Itoa(http.StatusOK))
	case NewAccountCreated:
		return r.redirect(ctx, "status_code", strconv.Itoa(http.StatusCreated))
	case LinkageMissing:
		return r.redirect(ctx, "status_code", strconv.Itoa(http.StatusNoContent))
	case ProviderMismatch:
		return r.redirect(ctx, "status_code", strconv.Itoa(http.StatusBadRequest))
	case UpstreamRejected:
		return r.redirect(ctx, "err_msg", redirectReason(provider, out.Reason))
	default:
		return r.redirect(ctx, "err_msg", "error")
	}
}

func (r RedirectResponder) redirect(ctx router.Context, key, value string) error {
	return ctx.Redirect(appendQueryParam(r.FrontendBaseURL, key, value), http.StatusFound)
}

func isInvalidRequest(err error) bool {
	return auth.HasTextCode(err, TextCodeInvalidRequest) ||
		auth.HasTextCode(err, TextCodeInvalidState) ||
		auth.HasTextCode(err, TextCodeStateExpired)
}

func redirectReason(provider string, reason Reason) string {
	switch reason {
	case ReasonTokenExchangeFailed:
		return "error"
	case ReasonProfileFetchFailed:
		return "failed_to_get"
	case ReasonSigninFailed:
		return "failed_to_signin"
	case ReasonAccountCreationFailed:
		return provider + "_signup"
	case ReasonTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// JSONResponder answers API callers with a status code and JSON body.
type JSONResponder struct{}

func (JSONResponder) Respond(ctx router.Context, provider string, out Outcome, err error) error {
	if err != nil {
		if isInvalidRequest(err) {
			return ctx.JSON(http.StatusBadRequest, map[string]any{"err_msg": "invalid_request"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]any{"err_msg": "error"})
	}

	switch out.Kind {
	case SignedIn:
		return ctx.JSON(http.StatusOK, map[string]any{"jwt_token": out.Tokens})
	case NewAccountCreated:
		return ctx.JSON(http.StatusCreated, map[string]any{"status_code": http.StatusCreated})
	case LinkageMissing:
		return ctx.JSON(http.StatusConflict, map[string]any{"err_msg": "linkage_missing"})
	case ProviderMismatch:
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"err_msg":  "provider_mismatch",
			"provider": out.ExistingProvider,
		})
	case UpstreamRejected:
		return respondRejected(ctx, out)
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]any{"err_msg": "error"})
	}
}

func respondRejected(ctx router.Context, out Outcome) error {
	switch out.Reason {
	case ReasonSigninFailed:
		status := out.UpstreamStatus
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return ctx.JSON(status, map[string]any{"err_msg": "failed to signin"})
	case ReasonTimeout:
		return ctx.JSON(http.StatusGatewayTimeout, map[string]any{"err_msg": string(out.Reason)})
	default:
		return ctx.JSON(http.StatusBadGateway, map[string]any{"err_msg": string(out.Reason)})
	}
}

// ResponderFor returns the responder for a configured response mode.
func ResponderFor(mode, frontendBaseURL string, cookieSecure bool) Responder {
	if strings.EqualFold(mode, ResponseModeJSON) {
		return JSONResponder{}
	}
	return RedirectResponder{FrontendBaseURL: frontendBaseURL, CookieSecure: cookieSecure}
}

func appendQueryParam(rawURL, key, value string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
