package social

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-fedauth"
)

// OutcomeKind tags a reconciliation result
type OutcomeKind int

const (
	SignedIn OutcomeKind = iota + 1
	ProviderMismatch
	LinkageMissing
	NewAccountCreated
	UpstreamRejected
)

func (k OutcomeKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case ProviderMismatch:
		return "provider_mismatch"
	case LinkageMissing:
		return "linkage_missing"
	case NewAccountCreated:
		return "new_account_created"
	case UpstreamRejected:
		return "upstream_rejected"
	default:
		return "unknown"
	}
}

// Reason explains an UpstreamRejected outcome
type Reason string

const (
	ReasonTokenExchangeFailed   Reason = "token_exchange_failed"
	ReasonProfileFetchFailed    Reason = "profile_fetch_failed"
	ReasonAccountCreationFailed Reason = "account_creation_failed"
	ReasonSigninFailed          Reason = "signin_failed"
	ReasonTimeout               Reason = "timeout"
)

// Outcome is the result of one federated login. It is never persisted.
type Outcome struct {
	Kind     OutcomeKind
	Provider string
	User     *auth.User

	// ExistingProvider is set for ProviderMismatch
	ExistingProvider string

	// Reason and UpstreamStatus are set for UpstreamRejected
	Reason         Reason
	UpstreamStatus int

	// Err is set for every outcome except SignedIn and NewAccountCreated
	Err error

	// Tokens is set for SignedIn once the pair has been minted
	Tokens auth.TokenPair
}

func signedIn(provider string, user *auth.User) Outcome {
	return Outcome{Kind: SignedIn, Provider: provider, User: user}
}

func providerMismatch(provider string, user *auth.User, existing string) Outcome {
	return Outcome{
		Kind:             ProviderMismatch,
		Provider:         provider,
		User:             user,
		ExistingProvider: existing,
		Err:              auth.ErrProviderMismatch,
	}
}

func linkageMissing(provider string, user *auth.User) Outcome {
	return Outcome{Kind: LinkageMissing, Provider: provider, User: user, Err: auth.ErrLinkageMissing}
}

func newAccountCreated(provider string, user *auth.User) Outcome {
	return Outcome{Kind: NewAccountCreated, Provider: provider, User: user}
}

// upstreamRejected classifies cause before wrapping it in base, so the
// status and timeout are read from the provider error itself.
func upstreamRejected(provider string, reason Reason, base *goerrors.Error, operation string, cause error) Outcome {
	if isTimeout(cause) {
		reason = ReasonTimeout
		base = ErrUpstreamTimeout
	}
	return Outcome{
		Kind:           UpstreamRejected,
		Provider:       provider,
		Reason:         reason,
		UpstreamStatus: UpstreamStatus(cause),
		Err:            wrapProviderError(base, provider, operation, cause),
	}
}

// LogArgs returns key/value pairs describing the outcome without secrets
func (o Outcome) LogArgs() []any {
	args := []any{"outcome", o.Kind.String(), "provider", o.Provider}
	if o.User != nil {
		args = append(args, "user_id", o.User.ID.String())
	}
	if o.ExistingProvider != "" {
		args = append(args, "existing_provider", o.ExistingProvider)
	}
	if o.Reason != "" {
		args = append(args, "reason", string(o.Reason))
	}
	if o.UpstreamStatus != 0 {
		args = append(args, "upstream_status", o.UpstreamStatus)
	}
	if o.Err != nil {
		args = append(args, "error", o.Err)
	}
	return args
}
