package social

import (
	"context"

	"github.com/goliatone/go-fedauth"
	"github.com/google/uuid"
)

// IdentityStore is the persistence contract used by reconciliation.
type IdentityStore interface {
	FindUserByEmail(ctx context.Context, email string) (auth.UserLookup, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
	FindLinkages(ctx context.Context, userID uuid.UUID) ([]*auth.SocialAccount, error)
	// CreateAccount creates the user and its linkage atomically. A unique
	// violation is resolved as a lookup and reported with Created false.
	CreateAccount(ctx context.Context, user *auth.User, linkage *auth.SocialAccount) (*auth.AccountResult, error)
}
