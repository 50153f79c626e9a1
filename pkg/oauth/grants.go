package oauth

import (
	"context"
)

func (s *Server) passwordGrant(ctx context.Context, req *Request) (*grant, error) {
	if err := CheckModel(s.model, CapGetUser); err != nil {
		return nil, err
	}

	username := req.Body.Get("username")
	password := req.Body.Get("password")
	if username == "" || password == "" {
		return nil, NewError(KindInvalidRequest, `Missing parameters. "username" and "password" are required`)
	}

	user, err := s.model.(UserGetter).GetUser(ctx, username, password)
	if user, err = lookup(CapGetUser, user, err); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewError(KindInvalidGrant, "Invalid grant: user credentials are invalid")
	}

	return &grant{
		user:         user,
		scope:        req.Body.Get("scope"),
		issueRefresh: true,
	}, nil
}

func (s *Server) refreshTokenGrant(ctx context.Context, req *Request, client *Client) (*grant, error) {
	if err := CheckModel(s.model, CapGetRefreshToken); err != nil {
		return nil, err
	}

	value := req.Body.Get("refresh_token")
	if value == "" {
		return nil, NewError(KindInvalidRequest, "Missing parameter: `refresh_token`")
	}

	rt, err := s.model.(RefreshTokenGetter).GetRefreshToken(ctx, value)
	if rt, err = lookup(CapGetRefreshToken, rt, err); err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, NewError(KindInvalidGrant, "Invalid grant: refresh token is invalid")
	}
	if rt.ClientID != "" && rt.ClientID != client.ID {
		return nil, NewError(KindInvalidGrant, "Invalid grant: refresh token was issued to another client")
	}
	if expired(rt.ExpiresAt, s.now()) {
		return nil, NewError(KindInvalidGrant, "Invalid grant: refresh token has expired")
	}

	user := rt.User
	if user == nil && rt.UserID != "" {
		user = &User{ID: rt.UserID}
	}

	g := &grant{
		user:         user,
		scope:        rt.Scope,
		issueRefresh: true,
	}

	if !s.rotate {
		if rt.RefreshToken == "" {
			g.refreshToken = value
		} else {
			g.refreshToken = rt.RefreshToken
		}
		g.refreshTokenExpiresAt = rt.ExpiresAt
		return g, nil
	}

	if revoker, ok := s.model.(RefreshTokenRevoker); ok {
		if rt.RefreshToken == "" {
			rt.RefreshToken = value
		}
		revoked, err := revoker.RevokeToken(ctx, rt)
		if err != nil {
			return nil, modelError(CapRevokeToken, err)
		}
		if !revoked {
			return nil, NewError(KindInvalidGrant, "Invalid grant: refresh token is invalid")
		}
	}

	return g, nil
}

func (s *Server) authorizationCodeGrant(ctx context.Context, req *Request, client *Client) (*grant, error) {
	if err := CheckModel(s.model, CapGetAuthorizationCode, CapRevokeAuthorizationCode); err != nil {
		return nil, err
	}

	value := req.Body.Get("code")
	if value == "" {
		return nil, NewError(KindInvalidRequest, "Missing parameter: `code`")
	}

	code, err := s.model.(AuthorizationCodeGetter).GetAuthorizationCode(ctx, value)
	if code, err = lookup(CapGetAuthorizationCode, code, err); err != nil {
		return nil, err
	}
	if code == nil {
		return nil, NewError(KindInvalidGrant, "Invalid grant: authorization code is invalid")
	}
	if code.ClientID != client.ID {
		return nil, NewError(KindInvalidGrant, "Invalid grant: authorization code was issued to another client")
	}
	if !code.ExpiresAt.IsZero() && !code.ExpiresAt.After(s.now()) {
		return nil, NewError(KindInvalidGrant, "Invalid grant: authorization code has expired")
	}
	if code.RedirectURI != "" && req.Body.Get("redirect_uri") != code.RedirectURI {
		return nil, NewError(KindInvalidGrant, "Invalid grant: `redirect_uri` does not match the authorization code")
	}

	if code.Code == "" {
		code.Code = value
	}
	consumed, err := s.model.(AuthorizationCodeRevoker).RevokeAuthorizationCode(ctx, code)
	if err != nil {
		return nil, modelError(CapRevokeAuthorizationCode, err)
	}
	if !consumed {
		return nil, NewError(KindInvalidGrant, "Invalid grant: authorization code is invalid")
	}

	user := code.User
	if user == nil && code.UserID != "" {
		user = &User{ID: code.UserID}
	}

	return &grant{
		user:         user,
		scope:        code.Scope,
		issueRefresh: true,
	}, nil
}

func (s *Server) clientCredentialsGrant(ctx context.Context, req *Request, client *Client) (*grant, error) {
	g := &grant{scope: req.Body.Get("scope")}

	if getter, ok := s.model.(ClientUserGetter); ok {
		user, err := getter.GetUserFromClient(ctx, client)
		if user, err = lookup(CapGetUserFromClient, user, err); err != nil {
			return nil, err
		}
		g.user = user
	}

	return g, nil
}
