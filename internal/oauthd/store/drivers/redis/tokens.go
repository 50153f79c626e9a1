package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type tokensRepo struct{ s *Store }

type tokenHash struct {
	TokenHash string `redis:"token_hash"`
	ClientID  string `redis:"client_id"`
	UserID    string `redis:"user_id"`
	Scope     string `redis:"scope"`
	ExpiresAt int64  `redis:"expires_at"`
	CreatedAt int64  `redis:"created_at"`
}

// create writes h under key unless the key already exists, and lets Redis
// expire it with the token.
func (r *tokensRepo) create(ctx context.Context, key string, h tokenHash, expiresAt *time.Time) error {
	ok, err := r.s.rdb.HSetNX(ctx, key, "token_hash", h.TokenHash).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrAlreadyExists
	}

	_, err = r.s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, h)
		if expiresAt != nil {
			pipe.PExpireAt(ctx, key, *expiresAt)
		}
		return nil
	})
	return err
}

func (r *tokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	return r.create(ctx, r.s.key("tokens", t.TokenHash), tokenHash{
		TokenHash: t.TokenHash,
		ClientID:  t.ClientID,
		UserID:    t.UserID,
		Scope:     t.Scope,
		ExpiresAt: toOptMillis(t.ExpiresAt),
		CreatedAt: toMillis(t.CreatedAt),
	}, t.ExpiresAt)
}

func (r *tokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	var h tokenHash
	if err := r.s.getHash(ctx, r.s.key("tokens", hash), &h); err != nil {
		return domain.AccessToken{}, err
	}
	return domain.AccessToken{
		TokenHash: h.TokenHash,
		ClientID:  h.ClientID,
		UserID:    h.UserID,
		Scope:     h.Scope,
		ExpiresAt: fromOptMillis(h.ExpiresAt),
		CreatedAt: fromMillis(h.CreatedAt),
	}, nil
}

func (r *tokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	return r.create(ctx, r.s.key("refresh_tokens", t.TokenHash), tokenHash{
		TokenHash: t.TokenHash,
		ClientID:  t.ClientID,
		UserID:    t.UserID,
		Scope:     t.Scope,
		ExpiresAt: toOptMillis(t.ExpiresAt),
		CreatedAt: toMillis(t.CreatedAt),
	}, t.ExpiresAt)
}

// GetRefreshTokenByHash only ever sees active tokens since revocation
// deletes the key.
func (r *tokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var h tokenHash
	if err := r.s.getHash(ctx, r.s.key("refresh_tokens", hash), &h); err != nil {
		return domain.RefreshToken{}, err
	}
	return domain.RefreshToken{
		TokenHash: h.TokenHash,
		ClientID:  h.ClientID,
		UserID:    h.UserID,
		Scope:     h.Scope,
		ExpiresAt: fromOptMillis(h.ExpiresAt),
		CreatedAt: fromMillis(h.CreatedAt),
	}, nil
}

// RevokeRefreshToken deletes the token; DEL reports 1 to exactly one caller.
func (r *tokensRepo) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	n, err := r.s.rdb.Del(ctx, r.s.key("refresh_tokens", hash)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpiredTokens has nothing to do; keys expire on their own.
func (r *tokensRepo) DeleteExpiredTokens(context.Context, time.Time) (int64, error) {
	return 0, nil
}
