package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store/drivers/redis"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store/storetest"
)

func newStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := redis.NewStore(context.Background(), redis.Config{Addr: mr.Addr(), Prefix: "oauthd:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newStore(t)
		return s
	}, storetest.Options{NativeExpiry: true})
}

func TestKeyLayout(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Clients().CreateClient(ctx, domain.Client{ID: "cli_a", CreatedAt: time.Now()}))
	require.NoError(t, s.Users().CreateUser(ctx, domain.User{ID: "usr_1", Username: "alice", CreatedAt: time.Now()}))

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Tokens().CreateAccessToken(ctx, domain.AccessToken{
		TokenHash: "fp", ClientID: "cli_a", ExpiresAt: &exp, CreatedAt: time.Now(),
	}))

	assert.True(t, mr.Exists("oauthd:clients:cli_a"))
	assert.True(t, mr.Exists("oauthd:users:usr_1"))
	assert.True(t, mr.Exists("oauthd:tokens:fp"))
	assert.Equal(t, "usr_1", mustGet(t, mr, "oauthd:usernames:alice"))

	ttl := mr.TTL("oauthd:tokens:fp")
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestTokensExpireNatively(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Minute)
	require.NoError(t, s.Tokens().CreateAccessToken(ctx, domain.AccessToken{
		TokenHash: "fp", ClientID: "cli_a", ExpiresAt: &exp, CreatedAt: time.Now(),
	}))

	mr.FastForward(2 * time.Minute)

	_, err := s.Tokens().GetAccessTokenByHash(ctx, "fp")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := redis.NewStore(ctx, redis.Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestNewStoreWithClient(t *testing.T) {
	mr := miniredis.RunT(t)
	s := redis.NewStoreWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.ApplyMigrations())
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
