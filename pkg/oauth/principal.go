package oauth

import "context"

// Principal is the identity behind an authenticated request.
type Principal struct {
	Token    *Token
	UserID   string
	User     *User
	ClientID string
	Scope    string
}

func newPrincipal(tok *Token) *Principal {
	p := &Principal{
		Token:    tok,
		UserID:   tok.UserID,
		User:     tok.User,
		ClientID: tok.ClientID,
		Scope:    tok.Scope,
	}

	// An embedded user wins over the bare id.
	if tok.User != nil && tok.User.ID != "" {
		p.UserID = tok.User.ID
	}

	if p.User == nil && p.UserID != "" {
		p.User = &User{ID: p.UserID}
	}

	return p
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type codeKey struct{}

// WithAuthorizationCode returns a copy of ctx carrying the issued code.
func WithAuthorizationCode(ctx context.Context, code *AuthorizationCode) context.Context {
	return context.WithValue(ctx, codeKey{}, code)
}

// AuthorizationCodeFromContext returns the code issued for this request, if
// any.
func AuthorizationCodeFromContext(ctx context.Context) (*AuthorizationCode, bool) {
	c, ok := ctx.Value(codeKey{}).(*AuthorizationCode)
	return c, ok && c != nil
}

type tokenKey struct{}

// WithToken returns a copy of ctx carrying the issued token.
func WithToken(ctx context.Context, tok *Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, tok)
}

// TokenFromContext returns the token issued for this request, if any.
func TokenFromContext(ctx context.Context) (*Token, bool) {
	t, ok := ctx.Value(tokenKey{}).(*Token)
	return t, ok && t != nil
}
