package auth

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound = "auth_identity_not_found"
	TextCodeInvalidPassword  = "auth_invalid_credentials"
	TextCodeUserInactive     = "auth_user_inactive"
	TextCodeEmailTaken       = "auth_email_taken"
	TextCodeTokenExpired     = "auth_token_expired"
	TextCodeTokenMalformed   = "auth_token_malformed"
	TextCodeTokenRevoked     = "auth_token_revoked"
	TextCodeWrongTokenType   = "auth_wrong_token_type"
	TextCodeEmptyString      = "auth_empty_string"
	TextCodeProviderMismatch = "auth_provider_mismatch"
	TextCodeLinkageMissing   = "auth_linkage_missing"
	TextCodeMissingSession   = "auth_missing_session"
	TextCodeAdminRequired    = "auth_admin_required"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(errors.CodeUnauthorized)

var ErrUserInactive = errors.New("user is not active", errors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is returned when a user with the email already exists
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked is returned for refresh tokens that were logged out or rotated
var ErrTokenRevoked = errors.New("token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrWrongTokenType is returned when an access token is used where a refresh
// token is expected, or the other way around
var ErrWrongTokenType = errors.New("wrong token type", errors.CategoryAuth).
	WithTextCode(TextCodeWrongTokenType).
	WithCode(errors.CodeUnauthorized)

var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyString).
	WithCode(errors.CodeBadRequest)

// ErrProviderMismatch is returned when an email is already linked to a
// different identity provider
var ErrProviderMismatch = errors.New("account is linked to a different provider", errors.CategoryConflict).
	WithTextCode(TextCodeProviderMismatch).
	WithCode(errors.CodeConflict)

// ErrLinkageMissing flags a local user without any provider linkage. It needs
// manual reconciliation and is never healed automatically.
var ErrLinkageMissing = errors.New("account has no provider linkage", errors.CategoryConflict).
	WithTextCode(TextCodeLinkageMissing).
	WithCode(errors.CodeConflict)

// ErrMissingSession is returned when a protected route has no bearer token
var ErrMissingSession = errors.New("missing or malformed JWT", errors.CategoryAuth).
	WithTextCode(TextCodeMissingSession).
	WithCode(errors.CodeUnauthorized)

var ErrAdminRequired = errors.New("admin privileges required", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminRequired).
	WithCode(errors.CodeForbidden)

// HasTextCode reports whether err carries a go-errors value with the given text code
func HasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !stderrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return HasTextCode(err, TextCodeTokenMalformed) || HasTextCode(err, TextCodeMissingSession)
}

// HTTPStatus returns the HTTP code attached to err, or def when none is set
func HTTPStatus(err error, def int) int {
	var richErr *errors.Error
	if stderrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return def
}

func withSource(base *errors.Error, err error) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = err
	return clone
}
