package oauth

import (
	"context"
)

// Authenticate validates the bearer token presented with req and returns
// the principal it belongs to.
func (s *Server) Authenticate(ctx context.Context, req *Request) (_ *Principal, err error) {
	ctx, done := s.observe(ctx, "authenticate")
	defer func() { done(&err) }()

	if err := CheckModel(s.model, CapGetAccessToken); err != nil {
		return nil, err
	}

	bearer, err := ResolveBearerToken(req)
	if err != nil {
		s.metrics.RecordAuthentication(ctx, string(KindInvalidRequest))
		return nil, err
	}

	p, err := s.authenticateToken(ctx, bearer)
	if err != nil {
		s.metrics.RecordAuthentication(ctx, string(AsError(err).Kind))
		return nil, err
	}

	s.metrics.RecordAuthentication(ctx, "success")
	return p, nil
}

func (s *Server) authenticateToken(ctx context.Context, bearer string) (*Principal, error) {
	tok, err := s.model.(AccessTokenGetter).GetAccessToken(ctx, bearer)
	if tok, err = lookup(CapGetAccessToken, tok, err); err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, NewError(KindInvalidToken, "Invalid token: the access token provided is invalid")
	}

	if expired(tok.AccessTokenExpiresAt, s.now()) {
		return nil, NewError(KindInvalidToken, "Invalid token: the access token provided has expired")
	}

	p := newPrincipal(tok)
	s.log(ctx).Debug("access token accepted", "client_id", p.ClientID, "user_id", p.UserID)
	return p, nil
}
