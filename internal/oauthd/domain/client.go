package domain

import "time"

type Client struct {
	ID           string
	Name         string
	SecretHash   string // argon2 encoded; empty for clients that only use the authorize endpoint
	RedirectURIs []string
	Grants       []string
	UserID       string // acting user for client_credentials, optional

	// Zero uses the server default.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CreatedAt time.Time
}
