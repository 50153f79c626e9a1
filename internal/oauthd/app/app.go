package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/oauthkit/internal/oauthd/http"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/service"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store/drivers/memory"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store/drivers/redis"
	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store/drivers/sqlite"
	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
	"github.com/aussiebroadwan/oauthkit/pkg/instrumentation"
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/oauthhttp"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the demo server with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	hasher *cryptox.Hasher
	inst   *instrumentation.Instrumentation
	signer *jwtx.Signer // nil unless TokenFormat is jwt

	// Protocol
	engine *oauth.Server
	oauth  *oauthhttp.Middleware

	// Services
	housekeepingService *service.HousekeepingService
	seeded              []service.SeededClient

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	return NewWithLogger(cfg, slogx.New(slogx.Config{
		Service: "oauthd",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

// NewWithLogger is New with a caller supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{cfg: cfg, logger: logger}
	ctx := slogx.WithContext(context.Background(), logger)

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	if err := app.initServices(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initOAuth(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler, for tests and embedding.
func (app *Application) Handler() http.Handler { return app.router }

// SeededClients lists the clients created from the seed file on this start.
func (app *Application) SeededClients() []service.SeededClient { return app.seeded }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("oauthd starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.Store,
		"grants", app.engine.Grants(),
		"token_format", app.cfg.TokenFormat,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down oauthd...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.inst.Shutdown(ctx); err != nil {
		app.logger.Error("error flushing telemetry", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("oauthd stopped")
	return nil
}

// initStore opens the configured store and applies migrations.
func (app *Application) initStore(ctx context.Context) error {
	switch app.cfg.Store {
	case StoreSQLite:
		db, err := sqlite.NewStore(app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	case StoreRedis:
		db, err := redis.NewStore(ctx, redis.Config{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
			Prefix:   app.cfg.RedisPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.db = db
	default:
		app.db = memory.NewStore()
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("store ready", "driver", app.cfg.Store)
	return nil
}

// initServices seeds the store and prepares background workers.
func (app *Application) initServices(ctx context.Context) error {
	if app.cfg.SeedFile != "" {
		data, err := service.LoadSeedFile(app.cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}

		seeder := &service.SeedService{Store: app.db, Hasher: app.hasher}
		app.seeded, err = seeder.Seed(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initOAuth builds the protocol engine and its HTTP adapter.
func (app *Application) initOAuth() error {
	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "oauthd",
		ServiceVersion: BuildVersion,
		Enabled:        app.cfg.MetricsEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	app.inst = inst

	var generator oauth.TokenGenerator
	if app.cfg.TokenFormat == TokenFormatJWT {
		if app.signer, err = InitSigner(app.cfg, app.logger); err != nil {
			return err
		}
		generator = jwtx.NewTokenGenerator(app.signer, app.cfg.Issuer)
	}

	model := store.NewModel(app.db, app.hasher, nil)

	// Fail at startup rather than on the first request of a flow.
	if err := oauth.CheckModel(model,
		oauth.CapGetClient,
		oauth.CapGetUser,
		oauth.CapGetAccessToken,
		oauth.CapGetRefreshToken,
		oauth.CapSaveToken,
		oauth.CapSaveAuthorizationCode,
		oauth.CapGetAuthorizationCode,
		oauth.CapRevokeAuthorizationCode,
	); err != nil {
		return err
	}

	rotate := app.cfg.RotateRefreshTokens
	app.engine, err = oauth.NewServer(oauth.Options{
		Model:                      model,
		Grants:                     app.cfg.Grants,
		AccessTokenLifetime:        app.cfg.AccessTokenTTL,
		RefreshTokenLifetime:       app.cfg.RefreshTokenTTL,
		AuthorizationCodeLifetime:  app.cfg.CodeTTL,
		AlwaysIssueNewRefreshToken: &rotate,
		TokenGenerator:             generator,
		Logger:                     app.logger,
		Instrumentation:            app.inst,
	})
	if err != nil {
		return fmt.Errorf("failed to create oauth server: %w", err)
	}

	app.oauth, err = oauthhttp.New(app.engine, oauthhttp.Options{
		PassthroughErrors: app.cfg.PassthroughErrors,
		Debug:             app.cfg.Debug,
		ErrorHandler:      app.handleOAuthError,
		Logger:            app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create oauth middleware: %w", err)
	}

	return nil
}

// handleOAuthError is the host side of protocol failures. In passthrough
// mode it is responsible for the response; otherwise it only observes.
func (app *Application) handleOAuthError(w http.ResponseWriter, r *http.Request, err error, next http.Handler) {
	e := oauth.AsError(err)
	log := slogx.FromContext(r.Context())

	if next == nil {
		log.Info("oauth request rejected", "error", string(e.Kind), "status", e.Status)
		return
	}

	// Passthrough: answer in the standard shape, never continue the chain
	// for a failed protocol step.
	log.Info("oauth error passed through", "error", string(e.Kind), "status", e.Status)
	oauthhttp.WriteError(w, e)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.oauth, app.db, BuildVersion, app.logger)
	router.Signer = app.signer
	if app.cfg.MetricsEnabled {
		router.Metrics = app.inst.MetricsHandler()
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
