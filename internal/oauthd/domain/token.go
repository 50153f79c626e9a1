package domain

import "time"

// AccessToken models a stored access token. The raw token is never kept;
// TokenHash is its deterministic fingerprint (base64url SHA-256).
type AccessToken struct {
	TokenHash string
	ClientID  string
	UserID    string
	Scope     string
	ExpiresAt *time.Time // nil never expires
	CreatedAt time.Time
}

// RefreshToken models the stored refresh token record.
type RefreshToken struct {
	TokenHash string
	ClientID  string
	UserID    string
	Scope     string
	ExpiresAt *time.Time
	Revoked   bool
	CreatedAt time.Time
}
