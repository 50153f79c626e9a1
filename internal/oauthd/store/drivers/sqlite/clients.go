package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type clientsRepo struct {
	db *sql.DB
}

const clientColumns = `id, name, secret_hash, redirect_uris, grants, user_id,
	access_token_ttl, refresh_token_ttl, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c                     domain.Client
		secretHash, userID    sql.NullString
		redirectURIs, grants  string
		accessTTL, refreshTTL int64
		createdAt             int64
	)
	err := row.Scan(&c.ID, &c.Name, &secretHash, &redirectURIs, &grants, &userID,
		&accessTTL, &refreshTTL, &createdAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	c.SecretHash = mapNullString(secretHash)
	c.UserID = mapNullString(userID)
	c.RedirectURIs = splitList(redirectURIs)
	c.Grants = splitList(grants)
	c.AccessTokenTTL = time.Duration(accessTTL) * time.Second
	c.RefreshTokenTTL = time.Duration(refreshTTL) * time.Second
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	return scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, mapStringNull(c.SecretHash),
		joinList(c.RedirectURIs), joinList(c.Grants), mapStringNull(c.UserID),
		int64(c.AccessTokenTTL/time.Second), int64(c.RefreshTokenTTL/time.Second),
		toMillis(c.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
