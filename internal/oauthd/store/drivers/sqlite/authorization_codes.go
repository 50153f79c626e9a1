package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
)

type codesRepo struct {
	db *sql.DB
}

func (r *codesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (code_hash, client_id, user_id, redirect_uri, scope, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.CodeHash, c.ClientID, mapStringNull(c.UserID), c.RedirectURI, c.Scope,
		toMillis(c.ExpiresAt), toMillis(c.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *codesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var (
		c                    domain.AuthorizationCode
		userID               sql.NullString
		expiresAt, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT code_hash, client_id, user_id, redirect_uri, scope, expires_at, created_at
		FROM authorization_codes WHERE code_hash = ? AND used_at IS NULL`, hash,
	).Scan(&c.CodeHash, &c.ClientID, &userID, &c.RedirectURI, &c.Scope, &expiresAt, &createdAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	c.UserID = mapNullString(userID)
	c.ExpiresAt = fromMillis(expiresAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

// ConsumeAuthorizationCode only succeeds for the caller whose update
// flipped used_at.
func (r *codesRepo) ConsumeAuthorizationCode(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE code_hash = ? AND used_at IS NULL`,
		toMillis(now), hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *codesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE used_at IS NOT NULL OR expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
