package oauth

import (
	"slices"
	"time"
)

// Grant types understood by the token endpoint.
const (
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
)

// AllGrantTypes is used when no grants are configured.
var AllGrantTypes = []string{
	GrantTypePassword,
	GrantTypeRefreshToken,
	GrantTypeAuthorizationCode,
	GrantTypeClientCredentials,
}

// Client is a registered OAuth client as returned by the model.
type Client struct {
	ID           string
	Secret       string
	RedirectURIs []string
	Grants       []string

	// Optional per-client lifetimes; zero uses the server default.
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
}

// AllowsGrant reports whether the client lists grant. A client without a
// grant list allows everything the server is configured for.
func (c *Client) AllowsGrant(grant string) bool {
	if len(c.Grants) == 0 {
		return true
	}
	return slices.Contains(c.Grants, grant)
}

// User is the resource owner. The engines only read ID.
type User struct {
	ID         string
	Username   string
	Attributes map[string]string
}

// Token is an issued access token, optionally paired with a refresh token.
// A nil AccessTokenExpiresAt never expires.
type Token struct {
	AccessToken           string
	AccessTokenExpiresAt  *time.Time
	RefreshToken          string
	RefreshTokenExpiresAt *time.Time
	Scope                 string
	ClientID              string
	UserID                string
	User                  *User
}

// RefreshToken is a stored refresh token. A nil ExpiresAt never expires.
type RefreshToken struct {
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
	ClientID     string
	UserID       string
	User         *User
}

// AuthorizationCode is a short-lived, single use code.
type AuthorizationCode struct {
	Code        string
	ExpiresAt   time.Time
	RedirectURI string
	Scope       string
	State       string
	ClientID    string
	UserID      string
	User        *User
}

func expired(at *time.Time, now time.Time) bool {
	return at != nil && !at.After(now)
}
