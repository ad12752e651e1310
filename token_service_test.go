package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-fedauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceMintPairSharesClaims(t *testing.T) {
	clock := newFixedClock()
	tokens := newTokens(auth.WithClock(clock.Now))

	user := activeUser("Pair@Example.com")
	user.IsAdmin = true

	pair, err := tokens.Mint(user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	access, err := tokens.Decode(pair.Access)
	require.NoError(t, err)
	refresh, err := tokens.Decode(pair.Refresh)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), access.UserID)
	assert.Equal(t, access.UserID, refresh.UserID)
	assert.Equal(t, "pair@example.com", access.Email)
	assert.Equal(t, access.Email, refresh.Email)
	assert.True(t, access.IsAdmin)
	assert.Equal(t, access.IsAdmin, refresh.IsAdmin)
	assert.Equal(t, access.Subject, refresh.Subject)

	assert.WithinDuration(t, access.Issued(), refresh.Issued(), 0)
	assert.WithinDuration(t, clock.Now(), access.Issued(), 0)
	assert.WithinDuration(t, access.Issued().Add(auth.DefaultAccessTTL), access.Expires(), 0)
	assert.WithinDuration(t, refresh.Issued().Add(auth.DefaultRefreshTTL), refresh.Expires(), 0)

	assert.Equal(t, auth.TokenTypeAccess, access.TokenType)
	assert.Equal(t, auth.TokenTypeRefresh, refresh.TokenType)
	assert.False(t, access.IsRefresh())
	assert.True(t, refresh.IsRefresh())
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestTokenServiceMintNilUser(t *testing.T) {
	_, err := newTokens().Mint(nil)
	assert.Error(t, err)
}

func TestTokenServiceCustomTTL(t *testing.T) {
	clock := newFixedClock()
	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: []byte(testSigningKey),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, auth.WithClock(clock.Now), auth.WithTokenLogger(nopLogger{}))

	assert.Equal(t, time.Minute, tokens.AccessTTL())
	assert.Equal(t, time.Hour, tokens.RefreshTTL())

	pair, err := tokens.Mint(activeUser("ttl@example.com"))
	require.NoError(t, err)

	access, err := tokens.Decode(pair.Access)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.Now().Add(time.Minute), access.Expires(), 0)
}

func TestTokenServiceDecodeExpired(t *testing.T) {
	clock := newFixedClock()
	tokens := newTokens(auth.WithClock(clock.Now))

	pair, err := tokens.Mint(activeUser("late@example.com"))
	require.NoError(t, err)

	clock.Advance(auth.DefaultAccessTTL + time.Second)

	_, err = tokens.Decode(pair.Access)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.False(t, auth.IsMalformedError(err))

	_, err = tokens.Decode(pair.Refresh)
	assert.NoError(t, err)
}

func TestTokenServiceDecodeRejects(t *testing.T) {
	tokens := newTokens()
	pair, err := tokens.Mint(activeUser("who@example.com"))
	require.NoError(t, err)

	otherKey := auth.NewTokenService(auth.TokenConfig{SigningKey: []byte("another-signing-key")},
		auth.WithTokenLogger(nopLogger{}))
	otherPair, err := otherKey.Mint(activeUser("who@example.com"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &auth.SessionClaims{
		UserID:    "someone",
		TokenType: auth.TokenTypeAccess,
	}).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	noUser, err := tokens.SignClaims(&auth.SessionClaims{TokenType: auth.TokenTypeAccess})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong signing key", token: otherPair.Access},
		{name: "unexpected algorithm", token: hs512},
		{name: "garbage", token: "not.a.token"},
		{name: "truncated", token: pair.Access[:len(pair.Access)-4]},
		{name: "missing user id", token: noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Decode(tt.token)
			require.Error(t, err)
			assert.True(t, auth.IsMalformedError(err))
		})
	}
}

func TestTokenServiceDecodeEmpty(t *testing.T) {
	_, err := newTokens().Decode("")
	require.ErrorIs(t, err, auth.ErrMissingSession)
}

func TestTokenServiceIssuerAndAudience(t *testing.T) {
	cfg := auth.TokenConfig{
		SigningKey: []byte(testSigningKey),
		Issuer:     "fedauth",
		Audience:   []string{"web"},
	}
	tokens := auth.NewTokenService(cfg, auth.WithTokenLogger(nopLogger{}))

	pair, err := tokens.Mint(activeUser("aud@example.com"))
	require.NoError(t, err)

	claims, err := tokens.Decode(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "fedauth", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"web"}, claims.Audience)

	cfg.Issuer = "someone-else"
	_, err = auth.NewTokenService(cfg, auth.WithTokenLogger(nopLogger{})).Decode(pair.Access)
	assert.True(t, auth.IsMalformedError(err))

	cfg.Issuer = "fedauth"
	cfg.Audience = []string{"mobile"}
	_, err = auth.NewTokenService(cfg, auth.WithTokenLogger(nopLogger{})).Decode(pair.Access)
	assert.True(t, auth.IsMalformedError(err))
}
