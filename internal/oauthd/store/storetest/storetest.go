// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

type Options struct {
	// NativeExpiry marks drivers that expire records themselves, so the
	// housekeeping deletes report nothing.
	NativeExpiry bool
}

// Run exercises a driver. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store, opts Options) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("clients", func(t *testing.T) { testClients(t, newStore(t)) })
	t.Run("access tokens", func(t *testing.T) { testAccessTokens(t, newStore(t)) })
	t.Run("refresh tokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("refresh rotation race", func(t *testing.T) { testRevokeRace(t, newStore(t)) })
	t.Run("authorization codes", func(t *testing.T) { testCodes(t, newStore(t)) })
	t.Run("single use codes race", func(t *testing.T) { testConsumeRace(t, newStore(t)) })
	if !opts.NativeExpiry {
		t.Run("housekeeping", func(t *testing.T) { testHousekeeping(t, newStore(t)) })
	}
	t.Run("ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

// now is truncated to milliseconds, the resolution every driver keeps.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func seedClient(t *testing.T, s store.Store, id string) domain.Client {
	t.Helper()

	c := domain.Client{
		ID:              id,
		Name:            "Test client " + id,
		SecretHash:      "$argon2id$fake",
		RedirectURIs:    []string{"http://example.com/cb", "http://example.com/alt"},
		Grants:          []string{"authorization_code", "refresh_token"},
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		CreatedAt:       now(),
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	u := domain.User{ID: "usr_1", Username: "alice", PasswordHash: "$argon2id$fake", CreatedAt: now()}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByID(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got, err = s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = s.Users().GetUserByUsername(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Users().GetUserByID(ctx, "usr_2")
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := u
	dup.ID = "usr_2"
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func testClients(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.Clients().IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	b := seedClient(t, s, "cli_b")
	a := seedClient(t, s, "cli_a")

	got, err := s.Clients().GetClientByID(ctx, "cli_a")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	require.ErrorIs(t, s.Clients().CreateClient(ctx, a), store.ErrAlreadyExists)

	list, err := s.Clients().ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"cli_a", "cli_b"}, []string{list[0].ID, list[1].ID})

	require.NoError(t, s.Clients().DeleteClient(ctx, b.ID))
	_, err = s.Clients().GetClientByID(ctx, b.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Clients().DeleteClient(ctx, b.ID), store.ErrNotFound)
}

func testAccessTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedClient(t, s, "cli_a")

	exp := now().Add(time.Hour)
	tok := domain.AccessToken{
		TokenHash: "hash-1",
		ClientID:  "cli_a",
		UserID:    "usr_1",
		Scope:     "read write",
		ExpiresAt: &exp,
		CreatedAt: now(),
	}
	require.NoError(t, s.Tokens().CreateAccessToken(ctx, tok))
	require.ErrorIs(t, s.Tokens().CreateAccessToken(ctx, tok), store.ErrAlreadyExists)

	got, err := s.Tokens().GetAccessTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	forever := domain.AccessToken{TokenHash: "hash-2", ClientID: "cli_a", CreatedAt: now()}
	require.NoError(t, s.Tokens().CreateAccessToken(ctx, forever))
	got, err = s.Tokens().GetAccessTokenByHash(ctx, "hash-2")
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
	assert.Empty(t, got.UserID)

	_, err = s.Tokens().GetAccessTokenByHash(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testRefreshTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedClient(t, s, "cli_a")

	exp := now().Add(24 * time.Hour)
	tok := domain.RefreshToken{
		TokenHash: "refresh-1",
		ClientID:  "cli_a",
		UserID:    "usr_1",
		Scope:     "read",
		ExpiresAt: &exp,
		CreatedAt: now(),
	}
	require.NoError(t, s.Tokens().CreateRefreshToken(ctx, tok))
	require.ErrorIs(t, s.Tokens().CreateRefreshToken(ctx, tok), store.ErrAlreadyExists)

	got, err := s.Tokens().GetRefreshTokenByHash(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	revoked, err := s.Tokens().RevokeRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.Tokens().RevokeRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)
	assert.False(t, revoked, "second revocation must lose")

	_, err = s.Tokens().GetRefreshTokenByHash(ctx, "refresh-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	revoked, err = s.Tokens().RevokeRefreshToken(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func testRevokeRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedClient(t, s, "cli_a")
	require.NoError(t, s.Tokens().CreateRefreshToken(ctx, domain.RefreshToken{
		TokenHash: "contended", ClientID: "cli_a", CreatedAt: now(),
	}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Tokens().RevokeRefreshToken(ctx, "contended")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func testCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedClient(t, s, "cli_a")

	code := domain.AuthorizationCode{
		CodeHash:    "code-1",
		ClientID:    "cli_a",
		UserID:      "usr_1",
		RedirectURI: "http://example.com/cb",
		Scope:       "read",
		ExpiresAt:   now().Add(5 * time.Minute),
		CreatedAt:   now(),
	}
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))
	require.ErrorIs(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code), store.ErrAlreadyExists)

	got, err := s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, code, got)

	ok, err := s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, "code-1", now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, "code-1", now())
	require.NoError(t, err)
	assert.False(t, ok, "a code is consumed once")

	_, err = s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, "code-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConsumeRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedClient(t, s, "cli_a")
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
		CodeHash: "contended", ClientID: "cli_a", ExpiresAt: now().Add(time.Minute), CreatedAt: now(),
	}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, "contended", now())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func testHousekeeping(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedClient(t, s, "cli_a")

	past := now().Add(-time.Minute)
	future := now().Add(time.Hour)

	require.NoError(t, s.Tokens().CreateAccessToken(ctx, domain.AccessToken{TokenHash: "old", ClientID: "cli_a", ExpiresAt: &past, CreatedAt: now()}))
	require.NoError(t, s.Tokens().CreateAccessToken(ctx, domain.AccessToken{TokenHash: "new", ClientID: "cli_a", ExpiresAt: &future, CreatedAt: now()}))
	require.NoError(t, s.Tokens().CreateRefreshToken(ctx, domain.RefreshToken{TokenHash: "old", ClientID: "cli_a", ExpiresAt: &past, CreatedAt: now()}))
	require.NoError(t, s.Tokens().CreateRefreshToken(ctx, domain.RefreshToken{TokenHash: "new", ClientID: "cli_a", ExpiresAt: &future, CreatedAt: now()}))

	removed, err := s.Tokens().DeleteExpiredTokens(ctx, now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = s.Tokens().GetAccessTokenByHash(ctx, "new")
	require.NoError(t, err)
	_, err = s.Tokens().GetAccessTokenByHash(ctx, "old")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{CodeHash: "old", ClientID: "cli_a", ExpiresAt: past, CreatedAt: now()}))
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{CodeHash: "new", ClientID: "cli_a", ExpiresAt: future, CreatedAt: now()}))

	removed, err = s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
