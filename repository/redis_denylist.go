package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-fedauth"
	"github.com/redis/go-redis/v9"
)

const DefaultDenylistPrefix = "fedauth:denylist:"

// RedisDenylist stores revoked refresh token IDs with a TTL matching the
// token expiry, so entries disappear once the token would be rejected anyway.
// Revoke uses SETNX so exactly one caller can consume a given token.
type RedisDenylist struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisDenylist(client redis.Cmdable, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = DefaultDenylistPrefix
	}
	return &RedisDenylist{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisDenylist) Revoke(ctx context.Context, jti string, claims *auth.SessionClaims) error {
	if jti == "" {
		return auth.ErrNoEmptyString
	}

	ttl := auth.DefaultRefreshTTL
	userID := ""
	if claims != nil {
		userID = claims.UserID
		if exp := claims.Expires(); !exp.IsZero() {
			ttl = exp.Sub(r.now())
		}
	}
	if ttl <= 0 {
		return nil
	}

	claimed, err := r.client.SetNX(ctx, r.key(jti), userID, ttl).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return auth.ErrTokenRevoked
	}
	return nil
}

func (r *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisDenylist) key(jti string) string {
	return r.prefix + jti
}
