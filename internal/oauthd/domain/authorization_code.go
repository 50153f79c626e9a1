package domain

import "time"

// AuthorizationCode represents an OAuth 2.0 authorization code issuance.
type AuthorizationCode struct {
	CodeHash    string
	ClientID    string
	UserID      string
	RedirectURI string
	Scope       string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}
