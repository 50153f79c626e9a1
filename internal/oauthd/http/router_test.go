package http_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	oauthdhttp "github.com/aussiebroadwan/oauthkit/internal/oauthd/http"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store/drivers/memory"
	"github.com/aussiebroadwan/oauthkit/pkg/authsdk"
	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/oauthhttp"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

type downStore struct{ store.Store }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type fixture struct {
	router *oauthdhttp.Router
	client *authsdk.SDKClient
}

func newFixture(t *testing.T, st store.Store, configure func(*oauthdhttp.Router)) fixture {
	t.Helper()
	ctx := context.Background()

	hasher := cryptox.NewHasher("pepper")
	secretHash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	passwordHash, err := hasher.Hash("hunter2")
	require.NoError(t, err)

	mem := memory.NewStore()
	require.NoError(t, mem.Users().CreateUser(ctx, domain.User{ID: "usr_1", Username: "alice", PasswordHash: passwordHash}))
	require.NoError(t, mem.Clients().CreateClient(ctx, domain.Client{ID: "cli_svc", SecretHash: secretHash}))
	require.NoError(t, mem.Clients().CreateClient(ctx, domain.Client{
		ID:           "cli_app",
		SecretHash:   secretHash,
		RedirectURIs: []string{"http://app.example.com/cb"},
	}))
	if st == nil {
		st = mem
	}

	srv, err := oauth.NewServer(oauth.Options{Model: store.NewModel(mem, hasher, nil)})
	require.NoError(t, err)
	mw, err := oauthhttp.New(srv, oauthhttp.Options{})
	require.NoError(t, err)

	r := oauthdhttp.NewRouter(mw, st, "test", slogx.Discard())
	if configure != nil {
		configure(r)
	}
	r.ApplyRoutes()

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return fixture{router: r, client: authsdk.NewSDKClient(ts.URL)}
}

func TestRouter_ClientCredentialsAndProtectedResource(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, nil)
	ctx := t.Context()

	tok, err := f.client.ClientCredentialsGrant(ctx, "cli_svc", "s3cret", []string{"read"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Empty(t, tok.RefreshToken)

	me, err := f.client.GetPrincipal(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cli_svc", me.ClientID)
	assert.Equal(t, "read", me.Scope)
	assert.NotZero(t, me.ExpiresAt)
}

func TestRouter_ProtectedResourceRejectsBadToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="Service", error="invalid_token"`, rec.Header().Get("WWW-Authenticate"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 401, body.Code)
	assert.Equal(t, "invalid_token", body.Error)
}

func TestRouter_AuthorizationCodeFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, nil)
	ctx := t.Context()

	user, err := f.client.PasswordGrant(ctx, "cli_svc", "s3cret", "alice", "hunter2", nil)
	require.NoError(t, err)
	require.NotEmpty(t, user.RefreshToken)

	code, err := f.client.AuthorizeWithBearerToken(ctx, user.AccessToken, "cli_app", "http://app.example.com/cb", "st-1", []string{"profile"})
	require.NoError(t, err)
	require.NotEmpty(t, code)

	tok, err := f.client.ExchangeAuthorizationCode(ctx, "cli_app", "s3cret", code, "http://app.example.com/cb")
	require.NoError(t, err)

	me, err := f.client.GetPrincipal(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cli_app", me.ClientID)
	assert.Equal(t, "usr_1", me.UserID)
	assert.Equal(t, "alice", me.Username)

	// Codes are single use.
	_, err = f.client.ExchangeAuthorizationCode(ctx, "cli_app", "s3cret", code, "http://app.example.com/cb")
	assert.True(t, authsdk.IsErrorCode(err, authsdk.ErrorCodeInvalidGrant))

	// Rotation retires the old refresh token.
	_, err = f.client.RefreshGrant(ctx, "cli_svc", "s3cret", user.RefreshToken)
	require.NoError(t, err)
	_, err = f.client.RefreshGrant(ctx, "cli_svc", "s3cret", user.RefreshToken)
	assert.True(t, authsdk.IsErrorCode(err, authsdk.ErrorCodeInvalidGrant))
}

func TestRouter_AuthorizeWithoutTokenIsDenied(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, nil)

	q := url.Values{"response_type": {"code"}, "client_id": {"cli_app"}, "state": {"xyz"}}
	req := httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	// No principal means access_denied, which is known before the redirect
	// URI is, so it is written as JSON.
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_denied"`)
}

func TestRouter_TokenRejectsUnknownGrant(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader("grant_type=device_code"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("cli_svc", "s3cret")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), `"unsupported_grant_type"`)
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	t.Run("live and ready", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil, nil)

		live, err := f.client.GetLiveness(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "ok", live.Status)
		assert.Equal(t, "test", live.Version)

		ready, err := f.client.GetReadiness(t.Context())
		require.NoError(t, err)
		require.NotNil(t, ready.Checks)
		assert.Equal(t, "ok", ready.Checks.Store)
	})

	t.Run("store down", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, downStore{memory.NewStore()}, nil)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body authsdk.HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "error: connection refused", body.Checks.Store)

		ready, err := f.client.GetReadiness(t.Context())
		require.ErrorIs(t, err, authsdk.ErrNotReady)
		require.NotNil(t, ready)
		assert.Equal(t, "degraded", ready.Status)
	})
}

func TestRouter_OptionalRoutes(t *testing.T) {
	t.Parallel()

	t.Run("absent by default", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil, nil)

		for _, path := range []string{"/.well-known/jwks.json", "/metrics"} {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})

	t.Run("mounted when configured", func(t *testing.T) {
		t.Parallel()

		_, key, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		signer, err := jwtx.NewSigner("k1", key)
		require.NoError(t, err)

		f := newFixture(t, nil, func(r *oauthdhttp.Router) {
			r.Signer = signer
			r.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("# metrics\n"))
			})
		})

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var jwks authsdk.JWKSResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&jwks))
		require.Len(t, jwks.Keys, 1)
		assert.Equal(t, "k1", jwks.Keys[0].Kid)
		assert.Equal(t, "OKP", jwks.Keys[0].Kty)

		rec = httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, "# metrics\n", rec.Body.String())
	})
}

func TestRouter_RateLimitsTokenEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, nil)

	var limited bool
	for range 50 {
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader("grant_type=client_credentials"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		req.SetBasicAuth("cli_svc", "s3cret")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			break
		}
	}
	assert.True(t, limited)
}

