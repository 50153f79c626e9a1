package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

var (
	// ErrNotFound is the engine's not-found sentinel so store errors can be
	// returned to it unchanged.
	ErrNotFound      = oauth.ErrNotFound
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (memory,
// sqlite, redis) implement this. Sub-repositories keep concerns tidy.
type Store interface {
	Users() Users
	Clients() Clients
	Tokens() Tokens
	AuthorizationCodes() AuthorizationCodes

	// ApplyMigrations prepares the schema. No-op for schemaless drivers.
	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during the password grant.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser fails with ErrAlreadyExists on a duplicate id or username.
	CreateUser(ctx context.Context, u domain.User) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClients returns all clients ordered by id.
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient fails with ErrAlreadyExists on a duplicate id.
	CreateClient(ctx context.Context, c domain.Client) error

	DeleteClient(ctx context.Context, id string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Tokens interface {
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// CreateRefreshToken fails with ErrAlreadyExists when the hash is
	// already stored.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns only tokens that have not been revoked.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken atomically revokes an active token. It reports
	// false when the token was unknown or already revoked, so that only one
	// of two concurrent rotations wins.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)

	// DeleteExpiredTokens is housekeeping. It returns the rows removed.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash returns only unused codes.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// ConsumeAuthorizationCode atomically marks an unused code as used and
	// reports whether this call was the one that did it.
	ConsumeAuthorizationCode(ctx context.Context, hash string, now time.Time) (bool, error)

	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}
