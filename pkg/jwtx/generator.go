package jwtx

import (
	"context"

	"github.com/aussiebroadwan/oauthkit/pkg/cryptox"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

// TokenGenerator issues access tokens as signed JWTs. Refresh tokens and
// authorization codes stay opaque since only the server ever reads them.
type TokenGenerator struct {
	Signer *Signer
	Issuer string

	opaque oauth.RandomTokenGenerator
}

var _ oauth.TokenGenerator = (*TokenGenerator)(nil)

func NewTokenGenerator(signer *Signer, issuer string) *TokenGenerator {
	return &TokenGenerator{Signer: signer, Issuer: issuer}
}

func (g *TokenGenerator) GenerateAccessToken(_ context.Context, req oauth.GenerateRequest) (string, error) {
	var subject, username, clientID string
	if req.User != nil {
		subject, username = req.User.ID, req.User.Username
	}
	if req.Client != nil {
		clientID = req.Client.ID
	}

	claims := NewAccessClaims(g.Issuer, subject, clientID, req.Scope, username, req.IssuedAt, req.ExpiresAt)
	return g.Signer.Sign(claims)
}

func (g *TokenGenerator) GenerateRefreshToken(ctx context.Context, req oauth.GenerateRequest) (string, error) {
	return g.opaque.GenerateRefreshToken(ctx, req)
}

func (g *TokenGenerator) GenerateAuthorizationCode(ctx context.Context, req oauth.GenerateRequest) (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}
