// Package redis stores records in Redis. Clients, users and tokens are
// hashes under "clients:<id>", "users:<id>" and "tokens:<fingerprint>";
// expiring records carry a TTL so housekeeping is left to Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key, e.g. "oauthd:".
	Prefix string
}

type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ store.Store = (*Store)(nil)

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewStoreWithClient(rdb, cfg.Prefix), nil
}

// NewStoreWithClient wraps an existing client. The store takes ownership
// and closes it on Close.
func NewStoreWithClient(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Users() store.Users                           { return &usersRepo{s} }
func (s *Store) Clients() store.Clients                       { return &clientsRepo{s} }
func (s *Store) Tokens() store.Tokens                         { return &tokensRepo{s} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &codesRepo{s} }

// ApplyMigrations is a no-op; Redis is schemaless.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) key(parts ...string) string {
	return s.prefix + strings.Join(parts, ":")
}

// getHash loads the hash at key into dst, mapping a missing key to
// store.ErrNotFound.
func (s *Store) getHash(ctx context.Context, key string, dst any) error {
	cmd := s.rdb.HGetAll(ctx, key)
	if err := cmd.Err(); err != nil {
		return err
	}
	if len(cmd.Val()) == 0 {
		return store.ErrNotFound
	}
	return cmd.Scan(dst)
}

func mapNil(err error) error {
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	return err
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Optional timestamps are stored as 0 when unset.

func toOptMillis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func fromOptMillis(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := fromMillis(ms)
	return &t
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
