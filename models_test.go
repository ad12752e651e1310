package auth_test

import (
	"testing"

	"github.com/goliatone/go-fedauth"
	"github.com/stretchr/testify/assert"
)

func TestNewUserNormalizesEmail(t *testing.T) {
	user := auth.NewUser("  Jane.Doe@Example.COM ", "")

	assert.Equal(t, "jane.doe@example.com", user.Email)
	assert.Equal(t, "jane.doe", user.Username)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.False(t, user.HasPassword())
	assert.NotEqual(t, "", user.ID.String())

	named := auth.NewUser("jane@example.com", "janed")
	assert.Equal(t, "janed", named.Username)
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "bob", auth.UsernameFromEmail("bob@example.com"))
	assert.Equal(t, "no-at-sign", auth.UsernameFromEmail("no-at-sign"))
	assert.Equal(t, "@example.com", auth.UsernameFromEmail("@example.com"))
}

func TestNewSocialAccount(t *testing.T) {
	user := auth.NewUser("link@example.com", "")
	acc := auth.NewSocialAccount(user, auth.ProviderKakao, "12345", nil)

	assert.Equal(t, user.ID, acc.UserID)
	assert.Equal(t, auth.ProviderKakao, acc.Provider)
	assert.Equal(t, "12345", acc.ProviderUserID)
	assert.NotNil(t, acc.ExtraData)
}

func TestUserLookup(t *testing.T) {
	var zero auth.UserLookup
	assert.False(t, zero.Found())
	assert.Nil(t, zero.User())
	assert.False(t, auth.UserNotFound().Found())

	user := auth.NewUser("found@example.com", "")
	lookup := auth.UserFound(user)
	assert.True(t, lookup.Found())
	assert.Same(t, user, lookup.User())
}

func TestAccountResultLinkageFor(t *testing.T) {
	user := auth.NewUser("both@example.com", "")
	google := auth.NewSocialAccount(user, auth.ProviderGoogle, "g-1", nil)
	result := &auth.AccountResult{User: user, Linkages: []*auth.SocialAccount{google}}

	assert.Same(t, google, result.LinkageFor(auth.ProviderGoogle))
	assert.Nil(t, result.LinkageFor(auth.ProviderKakao))

	var missing *auth.AccountResult
	assert.Nil(t, missing.LinkageFor(auth.ProviderGoogle))
}
