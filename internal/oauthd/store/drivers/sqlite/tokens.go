package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
)

type tokensRepo struct {
	db *sql.DB
}

func (r *tokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (token_hash, client_id, user_id, scope, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.TokenHash, t.ClientID, mapStringNull(t.UserID), t.Scope,
		toNullMillis(t.ExpiresAt), toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	var (
		t         domain.AccessToken
		userID    sql.NullString
		expiresAt sql.NullInt64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token_hash, client_id, user_id, scope, expires_at, created_at
		FROM access_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.TokenHash, &t.ClientID, &userID, &t.Scope, &expiresAt, &createdAt)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}

	t.UserID = mapNullString(userID)
	t.ExpiresAt = fromNullMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func (r *tokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_hash, client_id, user_id, scope, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TokenHash, t.ClientID, mapStringNull(t.UserID), t.Scope,
		toNullMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		userID    sql.NullString
		expiresAt sql.NullInt64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token_hash, client_id, user_id, scope, expires_at, revoked, created_at
		FROM refresh_tokens WHERE token_hash = ? AND revoked = 0`, hash,
	).Scan(&t.TokenHash, &t.ClientID, &userID, &t.Scope, &expiresAt, &t.Revoked, &createdAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.UserID = mapNullString(userID)
	t.ExpiresAt = fromNullMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

// RevokeRefreshToken relies on the conditional update so that of two
// concurrent rotations only one sees a changed row.
func (r *tokensRepo) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ? AND revoked = 0`, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	cutoff := toMillis(now)

	access, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	refresh, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE revoked = 1 OR (expires_at IS NOT NULL AND expires_at <= ?)`, cutoff)
	if err != nil {
		return 0, err
	}

	a, _ := access.RowsAffected()
	b, _ := refresh.RowsAffected()
	return a + b, nil
}
