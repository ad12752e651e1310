package social

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fedauth"
)

// Attempt is one verified provider identity waiting to be matched
// against local accounts.
type Attempt struct {
	Provider    string
	Profile     *Profile
	AccessToken string
	Code        string
}

// Reconciler decides what a provider identity means locally. The provider
// linkage, not the email, decides whether the user is a returning user of
// this provider; the email only locates candidates.
type Reconciler struct {
	store   IdentityStore
	handoff Handoff
	logger  auth.Logger
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

func WithReconcilerLogger(logger auth.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewReconciler(store IdentityStore, handoff Handoff, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:   store,
		handoff: handoff,
		logger:  auth.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Reconcile classifies the attempt. Store failures are returned as errors,
// everything else as an Outcome.
func (r *Reconciler) Reconcile(ctx context.Context, attempt Attempt) (Outcome, error) {
	if attempt.Profile == nil || attempt.Profile.Email == "" {
		return upstreamRejected(attempt.Provider, ReasonProfileFetchFailed,
			ErrProfileFetchFailed, OperationProfile, nil), nil
	}

	lookup, err := r.store.FindUserByEmail(ctx, attempt.Profile.Email)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if !lookup.Found() {
		return r.createAccount(ctx, attempt)
	}

	user := lookup.User()
	linkages, err := r.store.FindLinkages(ctx, user.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup linkages: %w", err)
	}

	return r.classifyExisting(ctx, attempt, user, linkages), nil
}

func (r *Reconciler) createAccount(ctx context.Context, attempt Attempt) (Outcome, error) {
	if err := r.handoff.Finish(ctx, attempt.Provider, attempt.AccessToken, attempt.Code); err != nil {
		r.logger.Warn("account hand-off failed", "provider", attempt.Provider, "error", err)
		return upstreamRejected(attempt.Provider, ReasonAccountCreationFailed,
			ErrHandoffFailed, OperationHandoff, err), nil
	}

	user := auth.NewUser(attempt.Profile.Email, "")
	linkage := auth.NewSocialAccount(user, attempt.Provider, attempt.Profile.ProviderUserID, attempt.Profile.Attributes)

	result, err := r.store.CreateAccount(ctx, user, linkage)
	if err != nil {
		return Outcome{}, fmt.Errorf("create account: %w", err)
	}

	// a concurrent callback or the hand-off endpoint got there first
	if result.Created || result.LinkageFor(attempt.Provider) != nil {
		return newAccountCreated(attempt.Provider, result.User), nil
	}

	if len(result.Linkages) == 0 {
		r.logger.Warn("user exists without provider linkage, needs manual reconciliation",
			"provider", attempt.Provider, "user_id", result.User.ID.String())
		return linkageMissing(attempt.Provider, result.User), nil
	}

	return providerMismatch(attempt.Provider, result.User, result.Linkages[0].Provider), nil
}

func (r *Reconciler) classifyExisting(ctx context.Context, attempt Attempt, user *auth.User, linkages []*auth.SocialAccount) Outcome {
	if len(linkages) == 0 {
		r.logger.Warn("user exists without provider linkage, needs manual reconciliation",
			"provider", attempt.Provider, "user_id", user.ID.String())
		return linkageMissing(attempt.Provider, user)
	}

	if auth.FindLinkage(linkages, attempt.Provider) == nil {
		return providerMismatch(attempt.Provider, user, linkages[0].Provider)
	}

	if err := r.handoff.Finish(ctx, attempt.Provider, attempt.AccessToken, attempt.Code); err != nil {
		r.logger.Warn("sign-in hand-off failed", "provider", attempt.Provider, "user_id", user.ID.String(), "error", err)
		return upstreamRejected(attempt.Provider, ReasonSigninFailed,
			ErrHandoffFailed, OperationHandoff, err)
	}

	return signedIn(attempt.Provider, user)
}
