package authsdk

import (
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
)

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body the server writes for protocol errors.
// Client code should use OAuth2Error from errors.go instead.
type ErrorResponse struct {
	// Code mirrors the HTTP status
	Code int `json:"code"`

	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the bearer credential, opaque or a JWT depending on
	// the server's token format
	AccessToken string `json:"access_token"`

	// RefreshToken is omitted for client_credentials
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in,omitempty"`

	Scope string `json:"scope,omitempty"`
}

// PrincipalResponse describes the identity behind an access token, as
// returned by GET /v1/me.
type PrincipalResponse struct {
	ClientID string `json:"client_id"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Scope    string `json:"scope,omitempty"`

	// ExpiresAt is epoch seconds, absent for tokens that never expire
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded"
	Status string `json:"status"`

	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`

	// Checks is only populated by /readyz
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	// Store is "ok" or "error: <reason>"
	Store string `json:"store"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse is returned from GET /.well-known/jwks.json when the server
// issues JWT access tokens.
type JWKSResponse jwtx.JWKS
