package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type codesRepo struct{ s *Store }

// Codes are JSON strings so that GETDEL can consume them in one step.
type codeRecord struct {
	CodeHash    string `json:"code_hash"`
	ClientID    string `json:"client_id"`
	UserID      string `json:"user_id,omitempty"`
	RedirectURI string `json:"redirect_uri,omitempty"`
	Scope       string `json:"scope,omitempty"`
	ExpiresAt   int64  `json:"expires_at"`
	CreatedAt   int64  `json:"created_at"`
}

func (r *codesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	raw, err := json.Marshal(codeRecord{
		CodeHash:    c.CodeHash,
		ClientID:    c.ClientID,
		UserID:      c.UserID,
		RedirectURI: c.RedirectURI,
		Scope:       c.Scope,
		ExpiresAt:   toMillis(c.ExpiresAt),
		CreatedAt:   toMillis(c.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("encode authorization code: %w", err)
	}

	ttl := time.Until(c.ExpiresAt)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	ok, err := r.s.rdb.SetNX(ctx, r.s.key("codes", c.CodeHash), raw, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *codesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	raw, err := r.s.rdb.Get(ctx, r.s.key("codes", hash)).Bytes()
	if err != nil {
		return domain.AuthorizationCode{}, mapNil(err)
	}

	var rec codeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.AuthorizationCode{}, fmt.Errorf("decode authorization code: %w", err)
	}

	return domain.AuthorizationCode{
		CodeHash:    rec.CodeHash,
		ClientID:    rec.ClientID,
		UserID:      rec.UserID,
		RedirectURI: rec.RedirectURI,
		Scope:       rec.Scope,
		ExpiresAt:   fromMillis(rec.ExpiresAt),
		CreatedAt:   fromMillis(rec.CreatedAt),
	}, nil
}

// ConsumeAuthorizationCode uses GETDEL so only one caller receives the
// value.
func (r *codesRepo) ConsumeAuthorizationCode(ctx context.Context, hash string, _ time.Time) (bool, error) {
	err := r.s.rdb.GetDel(ctx, r.s.key("codes", hash)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteExpiredAuthorizationCodes has nothing to do; codes carry a TTL.
func (r *codesRepo) DeleteExpiredAuthorizationCodes(context.Context, time.Time) (int64, error) {
	return 0, nil
}
