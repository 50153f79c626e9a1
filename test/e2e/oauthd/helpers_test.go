package oauthd_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/app"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/domain"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

/*
 * Shared setup for the oauthd end-to-end tests. A single Redis container
 * backs every test; each test gets its own key prefix.
 */

const (
	redisImage = "redis:7-alpine"

	svcClientID     = "cli_svc"
	svcClientSecret = "svc-secret"
	webClientID     = "cli_web"
	webClientSecret = "web-secret"
	webRedirectURI  = "http://localhost/callback"

	username = "alice"
	password = "Alice123!"
)

var redisAddr string

// TestMain starts Redis once for the whole package and tears it down after
// all tests complete.
func TestMain(m *testing.M) {
	ctx := context.Background()

	fmt.Fprintf(os.Stdout, "Starting Redis container...")
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to start Redis: %v\n", err)
		os.Exit(1)
	}

	redisAddr, err = containerAddr(ctx, container)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to resolve Redis address: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Stopping Redis container...")
	_ = container.Terminate(ctx)
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func containerAddr(ctx context.Context, container testcontainers.Container) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}

	mappedPort, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%s", host, mappedPort.Port()), nil
}

// service is one running oauthd instance.
type service struct {
	URL string
	App *app.Application
	Cfg app.Config
}

// newConfig returns a Redis backed config with a key prefix unique to t.
// The pepper and seed files live in a directory shared by restarts.
func newConfig(t *testing.T) app.Config {
	t.Helper()
	dir := t.TempDir()

	seed := domain.SeedData{
		Users: []domain.SeedUser{{Username: username, Password: password}},
		Clients: []domain.SeedClient{
			{
				ID:     svcClientID,
				Secret: svcClientSecret,
				Grants: []string{oauth.GrantTypeClientCredentials, oauth.GrantTypePassword, oauth.GrantTypeRefreshToken},
			},
			{
				ID:           webClientID,
				Secret:       webClientSecret,
				RedirectURIs: []string{webRedirectURI},
				Grants:       []string{oauth.GrantTypeAuthorizationCode, oauth.GrantTypeRefreshToken},
			},
		},
	}
	raw, err := json.Marshal(seed)
	require.NoError(t, err)
	seedFile := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedFile, raw, 0o600))

	prefix := "e2e:" + strings.NewReplacer("/", ":", " ", "_").Replace(t.Name()) + ":"

	return app.Config{
		Store:                app.StoreRedis,
		RedisAddr:            redisAddr,
		RedisPrefix:          prefix,
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      24 * time.Hour,
		CodeTTL:              time.Minute,
		RotateRefreshTokens:  true,
		TokenFormat:          app.TokenFormatOpaque,
		Issuer:               "oauthd-e2e",
		PepperFile:           filepath.Join(dir, "pepper"),
		SeedFile:             seedFile,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

// startService runs oauthd in process against the shared Redis.
func startService(t *testing.T, cfg app.Config) *service {
	t.Helper()

	application, err := app.NewWithLogger(cfg, slogx.Discard())
	require.NoError(t, err)

	ts := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		ts.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("failed to shut down: %v", err)
		}
	})

	return &service{URL: ts.URL, App: application, Cfg: cfg}
}
