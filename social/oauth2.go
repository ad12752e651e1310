package social

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// ExchangeCode runs the authorization_code grant for provider using conf.
// Credentials are sent in the form body. A non-empty redirectURI overrides
// conf.RedirectURL. Failures are returned as *ProviderError.
func ExchangeCode(ctx context.Context, provider string, conf *oauth2.Config, client *http.Client, code, redirectURI string) (*Token, error) {
	c := *conf
	c.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	if redirectURI != "" {
		c.RedirectURL = redirectURI
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	tok, err := c.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			status := 0
			if rerr.Response != nil {
				status = rerr.Response.StatusCode
			}
			desc := rerr.ErrorDescription
			if desc == "" && rerr.ErrorCode == "" {
				desc = strings.TrimSpace(string(rerr.Body))
			}
			raw := map[string]any{}
			if rerr.ErrorCode != "" {
				raw["error"] = rerr.ErrorCode
			}
			if rerr.ErrorDescription != "" {
				raw["error_description"] = rerr.ErrorDescription
			}
			return nil, NewProviderError(provider, OperationExchange, status, rerr.ErrorCode, desc, err, raw)
		}
		return nil, NewProviderError(provider, OperationExchange, 0, "", "", err, nil)
	}

	if tok.AccessToken == "" {
		return nil, NewProviderError(provider, OperationExchange, http.StatusOK, "missing_access_token", "missing access token", nil, nil)
	}

	var scopes []string
	if s, ok := tok.Extra("scope").(string); ok {
		scopes = strings.Fields(s)
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scopes:       scopes,
	}, nil
}
