package social

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidRequest      = "social_invalid_request"
	TextCodeProviderNotFound    = "social_provider_not_found"
	TextCodeTokenExchangeFail   = "social_token_exchange_failed"
	TextCodeProfileFetchFail    = "social_profile_fetch_failed"
	TextCodeUpstreamTimeout     = "social_upstream_timeout"
	TextCodeHandoffFailed       = "social_handoff_failed"
	TextCodeHandoffUnauthorized = "social_handoff_unauthorized"
	TextCodeInvalidState        = "social_invalid_state"
	TextCodeStateExpired        = "social_state_expired"
)

// ErrInvalidRequest is returned for a missing or malformed authorization code.
var ErrInvalidRequest = errors.New("missing or malformed authorization code", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidRequest).
	WithCode(errors.CodeBadRequest)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExchangeFailed is returned when a provider token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrProfileFetchFailed is returned when fetching the provider profile fails.
var ErrProfileFetchFailed = errors.New("failed to fetch profile", errors.CategoryAuth).
	WithTextCode(TextCodeProfileFetchFail).
	WithCode(errors.CodeUnauthorized)

// ErrUpstreamTimeout is returned when an outbound call exceeds its deadline.
var ErrUpstreamTimeout = errors.New("upstream call timed out", errors.CategoryOperation).
	WithTextCode(TextCodeUpstreamTimeout).
	WithCode(http.StatusGatewayTimeout)

// ErrHandoffFailed is returned when the account hand-off endpoint rejects a call.
var ErrHandoffFailed = errors.New("account hand-off failed", errors.CategoryAuth).
	WithTextCode(TextCodeHandoffFailed).
	WithCode(errors.CodeUnauthorized)

// ErrHandoffUnauthorized is returned when the hand-off shared secret does not match.
var ErrHandoffUnauthorized = errors.New("hand-off caller not authorized", errors.CategoryAuthz).
	WithTextCode(TextCodeHandoffUnauthorized).
	WithCode(errors.CodeForbidden)

// ErrInvalidState is returned when the OAuth state is missing, tampered with,
// issued for another provider or not bound to the calling browser.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state outlived its TTL.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)
