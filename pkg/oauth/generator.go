package oauth

import (
	"context"
	"time"

	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
)

// GenerateRequest describes the credential being minted.
type GenerateRequest struct {
	Client    *Client
	User      *User
	Scope     string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// TokenGenerator mints access tokens, refresh tokens and authorization codes.
type TokenGenerator interface {
	GenerateAccessToken(ctx context.Context, req GenerateRequest) (string, error)
	GenerateRefreshToken(ctx context.Context, req GenerateRequest) (string, error)
	GenerateAuthorizationCode(ctx context.Context, req GenerateRequest) (string, error)
}

// RandomTokenGenerator produces opaque base64url tokens from crypto/rand.
type RandomTokenGenerator struct {
	// Size is the number of random bytes; zero means cryptox.TokenSize256.
	Size int
}

func (g RandomTokenGenerator) size() int {
	if g.Size <= 0 {
		return cryptox.TokenSize256
	}
	return g.Size
}

func (g RandomTokenGenerator) GenerateAccessToken(context.Context, GenerateRequest) (string, error) {
	return cryptox.GenerateToken(g.size())
}

func (g RandomTokenGenerator) GenerateRefreshToken(context.Context, GenerateRequest) (string, error) {
	return cryptox.GenerateToken(g.size())
}

func (g RandomTokenGenerator) GenerateAuthorizationCode(context.Context, GenerateRequest) (string, error) {
	return cryptox.GenerateToken(g.size())
}
