package repository

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-fedauth"
	repo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityStore persists users and their provider linkages with bun.
// Email uniqueness is enforced by the users table, a create that trips it is
// resolved as a lookup.
type IdentityStore struct {
	db     *bun.DB
	users  repo.Repository[*auth.User]
	logger auth.Logger
}

// StoreOption customizes an IdentityStore
type StoreOption func(*IdentityStore)

func WithStoreLogger(logger auth.Logger) StoreOption {
	return func(s *IdentityStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewIdentityStore creates a new store.
func NewIdentityStore(db *bun.DB, opts ...StoreOption) *IdentityStore {
	s := &IdentityStore{
		db: db,
		users: repo.NewRepository[*auth.User](db, repo.ModelHandlers[*auth.User]{
			NewRecord: func() *auth.User { return &auth.User{} },
			GetID: func(u *auth.User) uuid.UUID {
				if u == nil {
					return uuid.Nil
				}
				return u.ID
			},
			SetID: func(u *auth.User, id uuid.UUID) {
				if u != nil {
					u.ID = id
				}
			},
		}),
		logger: auth.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// FindUserByEmail returns Found or NotFound, errors are storage failures only
func (s *IdentityStore) FindUserByEmail(ctx context.Context, email string) (auth.UserLookup, error) {
	return s.findUserByEmail(ctx, s.db, email)
}

func (s *IdentityStore) findUserByEmail(ctx context.Context, db bun.IDB, email string) (auth.UserLookup, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return auth.UserNotFound(), nil
	}

	record := &auth.User{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repo.IsRecordNotFound(err) {
			return auth.UserNotFound(), nil
		}
		return auth.UserNotFound(), err
	}

	return auth.UserFound(record), nil
}

// FindUserByID loads the current user row, used right before minting tokens
func (s *IdentityStore) FindUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	user, err := s.users.GetByID(ctx, id.String())
	if err != nil {
		if repo.IsRecordNotFound(err) {
			return nil, auth.ErrIdentityNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns a page of non-admin users ordered by email and the
// total number of non-admin users.
func (s *IdentityStore) ListUsers(ctx context.Context, limit, offset int) ([]*auth.User, int, error) {
	return s.users.List(ctx,
		repo.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_admin = ?", false).
				OrderExpr("?TableAlias.email ASC")
		}),
		repo.Paginate(limit, offset),
	)
}

// UpdateUser writes the username and password hash of an existing user
func (s *IdentityStore) UpdateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	user.UpdatedAt = time.Now().UTC()
	updated, err := s.users.Update(ctx, user,
		repo.UpdateColumns("username", "password_hash", "updated_at"),
	)
	if err != nil {
		if repo.IsRecordNotFound(err) {
			return nil, auth.ErrIdentityNotFound
		}
		return nil, err
	}
	return updated, nil
}

// FindLinkages returns every provider linkage of a user
func (s *IdentityStore) FindLinkages(ctx context.Context, userID uuid.UUID) ([]*auth.SocialAccount, error) {
	return s.findLinkages(ctx, s.db, userID)
}

func (s *IdentityStore) findLinkages(ctx context.Context, db bun.IDB, userID uuid.UUID) ([]*auth.SocialAccount, error) {
	var accounts []*auth.SocialAccount
	err := db.NewSelect().
		Model(&accounts).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil && !repo.IsRecordNotFound(err) {
		return nil, err
	}
	return accounts, nil
}

// CreateUser inserts a local user, a duplicate email is auth.ErrEmailTaken
func (s *IdentityStore) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	prepareUser(user)
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, auth.ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// CreateAccount inserts a user and its first linkage in one transaction.
// When the email is already taken the existing account is returned with
// Created set to false.
func (s *IdentityStore) CreateAccount(ctx context.Context, user *auth.User, linkage *auth.SocialAccount) (*auth.AccountResult, error) {
	prepareUser(user)
	if linkage.ID == uuid.Nil {
		linkage.ID = uuid.New()
	}
	linkage.UserID = user.ID
	if linkage.ExtraData == nil {
		linkage.ExtraData = map[string]any{}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(linkage).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if err == nil {
		return &auth.AccountResult{
			User:     user,
			Linkages: []*auth.SocialAccount{linkage},
			Created:  true,
		}, nil
	}

	if !isUniqueViolation(err) {
		return nil, err
	}

	s.logger.Info("account create hit unique constraint, resolving as lookup",
		"provider", linkage.Provider,
	)

	lookup, lerr := s.FindUserByEmail(ctx, user.Email)
	if lerr != nil {
		return nil, lerr
	}
	if !lookup.Found() {
		return nil, err
	}

	existing := lookup.User()
	linkages, lerr := s.FindLinkages(ctx, existing.ID)
	if lerr != nil {
		return nil, lerr
	}

	return &auth.AccountResult{
		User:     existing,
		Linkages: linkages,
		Created:  false,
	}, nil
}

func prepareUser(user *auth.User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = auth.NormalizeEmail(user.Email)
	if strings.TrimSpace(user.Username) == "" {
		user.Username = auth.UsernameFromEmail(user.Email)
	}
}
