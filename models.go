package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Supported identity providers
const (
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"
)

// User is the local identity record. PasswordHash is empty for accounts
// created through an identity provider that never set a local password.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk" json:"id"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	Username      string    `bun:"username,notnull" json:"username"`
	PasswordHash  string    `bun:"password_hash,nullzero" json:"-"`
	IsActive      bool      `bun:"is_active,notnull" json:"is_active"`
	IsAdmin       bool      `bun:"is_admin,notnull" json:"is_admin"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// NewUser returns an active, non admin user for the given email.
func NewUser(email, username string) *User {
	email = NormalizeEmail(email)
	if username == "" {
		username = UsernameFromEmail(email)
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasPassword reports whether the user can log in with a local password
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// SocialAccount links one local user to one identity provider.
// A user has at most one linkage per provider.
type SocialAccount struct {
	bun.BaseModel  `bun:"table:social_accounts,alias:sa"`
	ID             uuid.UUID      `bun:"id,pk" json:"id"`
	UserID         uuid.UUID      `bun:"user_id,notnull" json:"user_id"`
	Provider       string         `bun:"provider,notnull" json:"provider"`
	ProviderUserID string         `bun:"provider_user_id,notnull" json:"provider_user_id"`
	ExtraData      map[string]any `bun:"extra_data,type:jsonb" json:"extra_data,omitempty"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// NewSocialAccount builds a linkage for user at provider.
func NewSocialAccount(user *User, provider, providerUserID string, extra map[string]any) *SocialAccount {
	if extra == nil {
		extra = map[string]any{}
	}
	acc := &SocialAccount{
		ID:             uuid.New(),
		Provider:       provider,
		ProviderUserID: providerUserID,
		ExtraData:      extra,
		CreatedAt:      time.Now().UTC(),
	}
	if user != nil {
		acc.UserID = user.ID
	}
	return acc
}

// UserLookup is the result of looking a user up by email.
// The zero value is NotFound.
type UserLookup struct {
	user *User
}

// UserFound wraps a located user
func UserFound(user *User) UserLookup {
	return UserLookup{user: user}
}

// UserNotFound is the empty lookup result
func UserNotFound() UserLookup {
	return UserLookup{}
}

func (l UserLookup) Found() bool {
	return l.user != nil
}

func (l UserLookup) User() *User {
	return l.user
}

// AccountResult is returned by account creation. Created is false when the
// account already existed and the create was resolved as a lookup.
type AccountResult struct {
	User     *User
	Linkages []*SocialAccount
	Created  bool
}

// LinkageFor returns the linkage for provider, if any
func (r *AccountResult) LinkageFor(provider string) *SocialAccount {
	if r == nil {
		return nil
	}
	return FindLinkage(r.Linkages, provider)
}

// FindLinkage returns the linkage for provider in accounts, or nil
func FindLinkage(accounts []*SocialAccount, provider string) *SocialAccount {
	for _, acc := range accounts {
		if acc != nil && acc.Provider == provider {
			return acc
		}
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail uses the local part of the address as display name
func UsernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}
