package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goliatone/go-fedauth/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "rest-key",
		CallbackURL: "https://example.com/users/kakao/callback/",
	})

	parsed, err := url.Parse(provider.AuthCodeURL("state"))
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", parsed.Host)
	assert.Equal(t, "/oauth/authorize", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "rest-key", query.Get("client_id"))
	assert.Equal(t, "https://example.com/users/kakao/callback/", query.Get("redirect_uri"))
	assert.Equal(t, "account_email", query.Get("scope"))
	assert.Equal(t, "code", query.Get("response_type"))
}

func TestProviderExchangeAndFetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)
			assert.Equal(t, "authorization_code", values.Get("grant_type"))
			assert.Equal(t, "rest-key", values.Get("client_id"))
			assert.Equal(t, "kakao-code", values.Get("code"))
			assert.Equal(t, "https://example.com/users/kakao/callback/", values.Get("redirect_uri"))

			w.Header().Set("Content-Type", "application/json;charset=UTF-8")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "kakao-token",
				"token_type":    "bearer",
				"refresh_token": "kakao-refresh",
				"expires_in":    21599,
				"scope":         "account_email",
			})
		case "/v2/user/me":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer kakao-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json;charset=UTF-8")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 1234567890,
				"kakao_account": map[string]any{
					"has_email":         true,
					"email":             "user@kakao.com",
					"is_email_verified": true,
					"age_range":         "20~29",
					"gender":            "female",
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:    "rest-key",
		CallbackURL: "https://example.com/users/kakao/callback/",
		TokenURL:    server.URL + "/oauth/token",
		ProfileURL:  server.URL + "/v2/user/me",
	})

	token, err := provider.ExchangeCodeForToken(context.Background(), "kakao-code", "")
	require.NoError(t, err)
	assert.Equal(t, "kakao-token", token.AccessToken)
	assert.Equal(t, "kakao-refresh", token.RefreshToken)

	profile, err := provider.FetchProfile(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "kakao", profile.Provider)
	assert.Equal(t, "user@kakao.com", profile.Email)
	assert.Equal(t, "1234567890", profile.ProviderUserID)
	assert.Equal(t, "20~29", profile.Attributes["age_range"])
	assert.Equal(t, "female", profile.Attributes["gender"])
}

func TestProviderFetchProfileErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"msg":  "this access token does not exist",
			"code": -401,
		})
	}))
	defer server.Close()

	provider := New(Config{ClientID: "rest-key", ProfileURL: server.URL})

	_, err := provider.FetchProfile(context.Background(), &social.Token{AccessToken: "bad"})
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "kakao", perr.Provider)
	assert.Equal(t, social.OperationProfile, perr.Operation)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "-401", perr.Code)
	assert.Equal(t, "this access token does not exist", perr.Description)
}

func TestProviderProfileWithoutEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            42,
			"kakao_account": map[string]any{"has_email": false},
		})
	}))
	defer server.Close()

	provider := New(Config{ClientID: "rest-key", ProfileURL: server.URL})

	profile, err := provider.FetchProfile(context.Background(), &social.Token{AccessToken: "ok"})
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
	assert.Equal(t, "42", profile.ProviderUserID)
}
