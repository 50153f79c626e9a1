package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims. Registered claims carry subject,
// issuer and lifetime; the rest mirror the stored token record.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID the token was issued to.
	ClientID string `json:"client_id"`

	// Scope as granted, space separated.
	Scope string `json:"scope,omitempty"`

	// Username of the resource owner, when there is one.
	Username string `json:"username,omitempty"`
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// NewAccessClaims builds claims for an access token. A nil expiresAt leaves
// exp unset, matching a never-expiring stored token.
func NewAccessClaims(issuer, subject, clientID, scope, username string, now time.Time, expiresAt *time.Time) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        NewJTI(),
		},
		ClientID: clientID,
		Scope:    scope,
		Username: username,
	}
	if expiresAt != nil {
		c.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}

	// client_credentials tokens have no user; the client is the subject.
	if c.Subject == "" {
		c.Subject = clientID
	}

	return c
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
