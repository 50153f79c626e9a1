package app

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/aussiebroadwan/oauthkit/pkg/httpx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"
)

type Config struct {
	Store        string // Optional: token store (memory, sqlite, redis) (default: memory)
	DatabaseFile string // Optional: path to SQLite database file (default: ./oauthd.db)

	RedisAddr     string // Optional: Redis address (default: localhost:6379)
	RedisPassword string
	RedisDB       int
	RedisPrefix   string // Optional: key prefix (default: oauthd:)

	Grants               []string      // Optional: enabled grants, comma separated (default: all)
	AccessTokenTTL       time.Duration // Optional: (default: 1h)
	RefreshTokenTTL      time.Duration // Optional: (default: 14 days)
	CodeTTL              time.Duration // Optional: authorization code lifetime (default: 5m)
	RotateRefreshTokens  bool          // Optional: issue a new refresh token on refresh (default: true)
	TokenFormat          string        // Optional: access token format (opaque, jwt) (default: opaque)
	Issuer               string        // Optional: iss claim for JWT access tokens (default: oauthd)
	SigningKeyFile       string        // Optional: Ed25519 PEM for JWTs, generated if missing; empty means ephemeral
	PassthroughErrors    bool          // Optional: let the error handler respond instead of writing errors
	Debug                bool          // Optional: log error causes
	PepperFile           string        // Optional: path to pepper for secret hashing (default: ./pepper)
	SeedFile             string        // Optional: JSON file with clients and users to create on start
	MetricsEnabled       bool          // Optional: serve /metrics and record spans (default: true)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Store:                getEnvOrDefault("OAUTH_STORE", StoreMemory),
		DatabaseFile:         getEnvOrDefault("OAUTH_DATABASE_FILE", "oauthd.db"),
		RedisAddr:            getEnvOrDefault("OAUTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("OAUTH_REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("OAUTH_REDIS_DB", 0),
		RedisPrefix:          getEnvOrDefault("OAUTH_REDIS_PREFIX", "oauthd:"),
		Grants:               httpx.SplitList(os.Getenv("OAUTH_GRANTS")),
		AccessTokenTTL:       getEnvDurationOrDefault("OAUTH_ACCESS_TOKEN_TTL", oauth.DefaultAccessTokenLifetime),
		RefreshTokenTTL:      getEnvDurationOrDefault("OAUTH_REFRESH_TOKEN_TTL", oauth.DefaultRefreshTokenLifetime),
		CodeTTL:              getEnvDurationOrDefault("OAUTH_CODE_TTL", oauth.DefaultAuthorizationCodeLifetime),
		RotateRefreshTokens:  getEnvBoolOrDefault("OAUTH_ROTATE_REFRESH_TOKENS", true),
		TokenFormat:          getEnvOrDefault("OAUTH_TOKEN_FORMAT", TokenFormatOpaque),
		Issuer:               getEnvOrDefault("OAUTH_ISSUER", "oauthd"),
		SigningKeyFile:       os.Getenv("OAUTH_SIGNING_KEY_FILE"),
		PassthroughErrors:    getEnvBoolOrDefault("OAUTH_PASSTHROUGH_ERRORS", false),
		Debug:                getEnvBoolOrDefault("OAUTH_DEBUG", false),
		PepperFile:           getEnvOrDefault("OAUTH_PEPPER_FILE", "pepper"),
		SeedFile:             os.Getenv("OAUTH_SEED_FILE"),
		MetricsEnabled:       getEnvBoolOrDefault("OAUTH_METRICS_ENABLED", true),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

// Validate rejects settings New cannot act on.
func (cfg Config) Validate() error {
	switch cfg.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want memory, sqlite or redis)", cfg.Store)
	}

	switch cfg.TokenFormat {
	case TokenFormatOpaque, TokenFormatJWT:
	default:
		return fmt.Errorf("unknown token format %q (want opaque or jwt)", cfg.TokenFormat)
	}

	for _, g := range cfg.Grants {
		if !slices.Contains(oauth.AllGrantTypes, g) {
			return fmt.Errorf("unsupported grant %q", g)
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
