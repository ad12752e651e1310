package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-router"
)

// DefaultSessionContextKey is where RequireSession stores decoded claims
const DefaultSessionContextKey = "session"

// RequireSession rejects requests without a valid bearer access token and
// stores the decoded *SessionClaims in locals under contextKey.
func RequireSession(tokens *TokenService, contextKey string) router.MiddlewareFunc {
	if contextKey == "" {
		contextKey = DefaultSessionContextKey
	}
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, ok := bearerToken(ctx.Header("Authorization"))
			if !ok {
				return sessionError(ctx, ErrMissingSession)
			}

			claims, err := tokens.Decode(raw)
			if err != nil {
				return sessionError(ctx, err)
			}
			if claims.TokenType != TokenTypeAccess {
				return sessionError(ctx, ErrWrongTokenType)
			}

			ctx.Locals(contextKey, claims)
			return ctx.Next()
		}
	}
}

// RequireAdmin rejects sessions without the is_admin claim. It runs after
// RequireSession with the same contextKey.
func RequireAdmin(contextKey string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := SessionFromContext(ctx, contextKey)
			if !ok {
				return sessionError(ctx, ErrMissingSession)
			}
			if !claims.IsAdmin {
				return ctx.JSON(http.StatusForbidden, map[string]any{
					"err_msg": ErrAdminRequired.TextCode,
				})
			}
			return ctx.Next()
		}
	}
}

// SessionFromContext returns the claims stored by RequireSession
func SessionFromContext(ctx router.Context, contextKey string) (*SessionClaims, bool) {
	if contextKey == "" {
		contextKey = DefaultSessionContextKey
	}
	claims, ok := ctx.Locals(contextKey).(*SessionClaims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionError(ctx router.Context, err error) error {
	return ctx.JSON(http.StatusUnauthorized, map[string]any{
		"err_msg": errorTextCode(err, "unauthorized"),
	})
}
