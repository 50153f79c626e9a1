package app

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/pkg/authsdk"
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

const redirectURI = "http://app.example.com/cb"

func writeSeed(t *testing.T, dir string) string {
	t.Helper()

	data := domain.SeedData{
		Users: []domain.SeedUser{{Username: "alice", Password: "hunter2"}},
		Clients: []domain.SeedClient{
			{
				ID:     "cli_svc",
				Secret: "s3cret",
				Grants: []string{oauth.GrantTypeClientCredentials, oauth.GrantTypePassword, oauth.GrantTypeRefreshToken},
			},
			{
				ID:           "cli_app",
				Secret:       "app-secret",
				RedirectURIs: []string{redirectURI},
				Grants:       []string{oauth.GrantTypeAuthorizationCode},
			},
			{ID: "cli_generated"},
		},
	}

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()

	return Config{
		Store:                StoreMemory,
		DatabaseFile:         filepath.Join(dir, "oauthd.db"),
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      24 * time.Hour,
		CodeTTL:              time.Minute,
		RotateRefreshTokens:  true,
		TokenFormat:          TokenFormatOpaque,
		Issuer:               "oauthd-test",
		PepperFile:           filepath.Join(dir, "pepper"),
		SeedFile:             writeSeed(t, dir),
		MetricsEnabled:       true,
		Port:                 0,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

func startApp(t *testing.T, cfg Config) (*Application, *httptest.Server) {
	t.Helper()

	app, err := NewWithLogger(cfg, slogx.Discard())
	require.NoError(t, err)

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = app.inst.Shutdown(context.Background())
		_ = app.db.Close()
	})

	return app, ts
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("OAUTH_STORE", "redis")
	t.Setenv("OAUTH_GRANTS", "password, refresh_token")
	t.Setenv("OAUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("OAUTH_CODE_TTL", "2")
	t.Setenv("OAUTH_PASSTHROUGH_ERRORS", "true")
	t.Setenv("OAUTH_ROTATE_REFRESH_TOKENS", "not-a-bool")
	t.Setenv("PORT", "9090")

	cfg := LoadConfig()

	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, []string{"password", "refresh_token"}, cfg.Grants)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.CodeTTL)
	assert.Equal(t, oauth.DefaultRefreshTokenLifetime, cfg.RefreshTokenTTL)
	assert.True(t, cfg.PassthroughErrors)
	assert.True(t, cfg.RotateRefreshTokens)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "oauthd:", cfg.RedisPrefix)
	assert.Equal(t, TokenFormatOpaque, cfg.TokenFormat)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := Config{Store: StoreMemory, TokenFormat: TokenFormatOpaque}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown store", func(c *Config) { c.Store = "postgres" }, `unknown store "postgres"`},
		{"unknown format", func(c *Config) { c.TokenFormat = "paseto" }, `unknown token format "paseto"`},
		{"unknown grant", func(c *Config) { c.Grants = []string{"implicit"} }, `unsupported grant "implicit"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	_, err := NewWithLogger(Config{Store: "postgres", TokenFormat: TokenFormatOpaque}, slogx.Discard())
	require.ErrorContains(t, err, "invalid config")
}

func TestApp_ClientCredentialsWithOAuth2Client(t *testing.T) {
	t.Parallel()
	app, ts := startApp(t, testConfig(t))
	ctx := t.Context()

	// Only the client without a secret in the seed gets one generated.
	seeded := app.SeededClients()
	require.Len(t, seeded, 3)
	var generated int
	for _, c := range seeded {
		if c.Secret != "" {
			generated++
			assert.Equal(t, "cli_generated", c.ID)
		}
	}
	assert.Equal(t, 1, generated)

	cc := clientcredentials.Config{
		ClientID:     "cli_svc",
		ClientSecret: "s3cret",
		TokenURL:     ts.URL + "/oauth/token",
		Scopes:       []string{"read", "write"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tok, err := cc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.Type())
	assert.Empty(t, tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)

	resp, err := cc.Client(ctx).Get(ts.URL + "/v1/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me authsdk.PrincipalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "cli_svc", me.ClientID)
	assert.Equal(t, "read write", me.Scope)

	// Body credentials work too.
	cc.AuthStyle = oauth2.AuthStyleInParams
	_, err = cc.Token(ctx)
	require.NoError(t, err)

	cc.ClientSecret = "wrong"
	_, err = cc.Token(ctx)
	var re *oauth2.RetrieveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.Response.StatusCode)
	assert.Equal(t, "invalid_client", re.ErrorCode)
}

func TestApp_PasswordRefreshAndCodeFlows(t *testing.T) {
	t.Parallel()
	_, ts := startApp(t, testConfig(t))
	ctx := t.Context()

	svc := &oauth2.Config{
		ClientID:     "cli_svc",
		ClientSecret: "s3cret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  ts.URL + "/oauth/token",
			AuthURL:   ts.URL + "/oauth/authorize",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	user, err := svc.PasswordCredentialsToken(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, user.RefreshToken)

	_, err = svc.PasswordCredentialsToken(ctx, "alice", "wrong")
	var re *oauth2.RetrieveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "invalid_grant", re.ErrorCode)

	// An expired token makes the token source refresh, and rotation hands
	// back a different refresh token.
	stale := &oauth2.Token{AccessToken: user.AccessToken, RefreshToken: user.RefreshToken, Expiry: time.Now().Add(-time.Minute)}
	refreshed, err := svc.TokenSource(ctx, stale).Token()
	require.NoError(t, err)
	assert.NotEqual(t, user.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, user.RefreshToken, refreshed.RefreshToken)

	// Alice authorizes cli_app with her token.
	sdk := authsdk.NewSDKClient(ts.URL)
	code, err := sdk.AuthorizeWithBearerToken(ctx, refreshed.AccessToken, "cli_app", redirectURI, "st-9", []string{"profile"})
	require.NoError(t, err)

	appCfg := &oauth2.Config{
		ClientID:     "cli_app",
		ClientSecret: "app-secret",
		RedirectURL:  redirectURI,
		Endpoint:     svc.Endpoint,
	}
	tok, err := appCfg.Exchange(ctx, code)
	require.NoError(t, err)

	me, err := sdk.GetPrincipal(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cli_app", me.ClientID)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "profile", me.Scope)

	// cli_app is limited to authorization_code.
	_, err = appCfg.PasswordCredentialsToken(ctx, "alice", "hunter2")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "unauthorized_client", re.ErrorCode)
}

func TestApp_AuthorizeWithoutRedirectURIIsRejected(t *testing.T) {
	t.Parallel()
	_, ts := startApp(t, testConfig(t))
	ctx := t.Context()

	sdk := authsdk.NewSDKClient(ts.URL)
	user, err := sdk.PasswordGrant(ctx, "cli_svc", "s3cret", "alice", "hunter2", nil)
	require.NoError(t, err)

	// cli_svc may not use the code flow, and it has no redirect URI, so
	// the error comes back as JSON.
	_, err = sdk.AuthorizeWithBearerToken(ctx, user.AccessToken, "cli_svc", "", "", nil)
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusBadRequest, oe.StatusCode)
	assert.Equal(t, authsdk.ErrorCodeInvalidRequest, oe.Code)
}

func TestApp_JWTAccessTokens(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.TokenFormat = TokenFormatJWT
	cfg.SigningKeyFile = filepath.Join(t.TempDir(), "keys", "signing.pem")

	app, ts := startApp(t, cfg)
	ctx := t.Context()
	sdk := authsdk.NewSDKClient(ts.URL)

	tok, err := sdk.ClientCredentialsGrant(ctx, "cli_svc", "s3cret", []string{"read"})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(tok.AccessToken, ".")+1)

	jwks, err := sdk.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, app.signer.KID(), jwks.Keys[0].Kid)

	x, err := base64.RawURLEncoding.DecodeString(jwks.Keys[0].X)
	require.NoError(t, err)
	claims, err := jwtx.NewVerifier(ed25519.PublicKey(x), "oauthd-test", 0).Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cli_svc", claims.ClientID)
	assert.Equal(t, "cli_svc", claims.Subject)
	assert.Equal(t, "read", claims.Scope)

	// The JWT is still a stored token, so the protected resource accepts it.
	me, err := sdk.GetPrincipal(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cli_svc", me.ClientID)

	// The key file was created and restarts publish the same kid.
	_, err = os.Stat(cfg.SigningKeyFile)
	require.NoError(t, err)
	again, err := InitSigner(cfg, slogx.Discard())
	require.NoError(t, err)
	assert.Equal(t, app.signer.KID(), again.KID())
}

func TestApp_PassthroughErrorsStillAnswer(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.PassthroughErrors = true
	_, ts := startApp(t, cfg)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL+"/v1/me", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid_token", body.Error)
}

func TestApp_SQLiteStore(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Store = StoreSQLite
	_, ts := startApp(t, cfg)
	ctx := t.Context()

	sdk := authsdk.NewSDKClient(ts.URL)
	tok, err := sdk.PasswordGrant(ctx, "cli_svc", "s3cret", "alice", "hunter2", nil)
	require.NoError(t, err)

	me, err := sdk.GetPrincipal(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	ready, err := sdk.GetReadiness(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", ready.Status)
}

func TestApp_MetricsEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := startApp(t, testConfig(t))
	ctx := t.Context()

	_, err := authsdk.NewSDKClient(ts.URL).ClientCredentialsGrant(ctx, "cli_svc", "s3cret", nil)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Regexp(t, `oauth[._]tokens[._]issued`, string(raw))
}

func TestApp_HousekeepingRuns(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, testConfig(t))

	removed := app.housekeepingService.Cleanup(t.Context())
	assert.Zero(t, removed)
}
