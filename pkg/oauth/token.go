package oauth

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// TokenBody is the JSON body of a successful token response.
type TokenBody struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// grant is what a grant strategy hands to token issuance.
type grant struct {
	user  *User
	scope string

	issueRefresh bool

	// Set when an existing refresh token is carried over instead of minted.
	refreshToken          string
	refreshTokenExpiresAt *time.Time
}

// Token authenticates the client, runs the requested grant and commits the
// token response to res. The returned token is the one the model saved.
func (s *Server) Token(ctx context.Context, req *Request, res *Response) (_ *Token, err error) {
	ctx, done := s.observe(ctx, "token")
	defer func() { done(&err) }()

	if err := CheckModel(s.model, CapGetClient, CapSaveToken); err != nil {
		return nil, err
	}

	if req.Method != http.MethodPost {
		return nil, NewError(KindInvalidRequest, "Invalid request: method must be POST")
	}
	if !req.Is(ContentTypeForm) {
		return nil, NewError(KindInvalidRequest, "Invalid request: content must be application/x-www-form-urlencoded")
	}

	client, err := s.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}

	grantType := req.Body.Get("grant_type")
	if grantType == "" {
		return nil, NewError(KindInvalidRequest, "Missing parameter: `grant_type`")
	}
	if !slices.Contains(s.grants, grantType) {
		return nil, NewError(KindUnsupportedGrantType, "Unsupported grant type: `grant_type` is invalid")
	}

	if err := s.checkGrantAllowed(ctx, client, grantType); err != nil {
		return nil, err
	}

	s.log(ctx).Debug("token grant selected", "grant_type", grantType, "client_id", client.ID)

	var g *grant
	switch grantType {
	case GrantTypePassword:
		g, err = s.passwordGrant(ctx, req)
	case GrantTypeRefreshToken:
		g, err = s.refreshTokenGrant(ctx, req, client)
	case GrantTypeAuthorizationCode:
		g, err = s.authorizationCodeGrant(ctx, req, client)
	case GrantTypeClientCredentials:
		g, err = s.clientCredentialsGrant(ctx, req, client)
	}
	if err != nil {
		return nil, err
	}

	tok, err := s.issue(ctx, client, g)
	if err != nil {
		return nil, err
	}

	res.Header.Set("Cache-Control", "no-store")
	res.Header.Set("Pragma", "no-cache")
	res.SetBody(http.StatusOK, newTokenBody(tok, s.now()))

	s.metrics.RecordTokenIssued(ctx, grantType)
	s.log(ctx).Debug("token issued", "grant_type", grantType, "client_id", client.ID, "user_id", tok.UserID)

	return tok, nil
}

func (s *Server) authenticateClient(ctx context.Context, req *Request) (*Client, error) {
	id, secret, err := clientCredentials(req)
	if err != nil {
		return nil, err
	}

	client, err := s.model.(ClientGetter).GetClient(ctx, id, secret)
	if client, err = lookup(CapGetClient, client, err); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewError(KindInvalidClient, "Invalid client: client credentials are invalid")
	}
	if client.ID == "" {
		// Models may return a client without echoing the id back.
		c := *client
		c.ID = id
		client = &c
	}

	return client, nil
}

// clientCredentials reads HTTP Basic credentials, falling back to the
// client_id and client_secret body parameters. Any other Authorization
// scheme is ignored.
func clientCredentials(req *Request) (id, secret string, err error) {
	invalid := NewError(KindInvalidClient, "Invalid client: cannot retrieve client credentials")

	if encoded, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Basic "); ok {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return "", "", invalid.WithCause(err)
		}
		id, secret, ok = strings.Cut(string(raw), ":")
		if !ok {
			return "", "", invalid
		}

		// RFC 6749 section 2.3.1 form-encodes both halves before joining.
		if v, err := url.QueryUnescape(id); err == nil {
			id = v
		}
		if v, err := url.QueryUnescape(secret); err == nil {
			secret = v
		}
	} else {
		id = req.Body.Get("client_id")
		secret = req.Body.Get("client_secret")
	}

	if id == "" || secret == "" {
		return "", "", invalid
	}
	return id, secret, nil
}

func (s *Server) checkGrantAllowed(ctx context.Context, client *Client, grantType string) error {
	denied := NewError(KindUnauthorizedClient, "Unauthorized client: `grant_type` is invalid")

	if !client.AllowsGrant(grantType) {
		return denied
	}

	checker, ok := s.model.(GrantTypeChecker)
	if !ok {
		return nil
	}

	allowed, err := checker.GrantTypeAllowed(ctx, client.ID, grantType)
	if err != nil {
		return modelError(CapGrantTypeAllowed, err)
	}
	if !allowed {
		return denied
	}
	return nil
}

func (s *Server) issue(ctx context.Context, client *Client, g *grant) (*Token, error) {
	now := s.now()
	accessExpiresAt := now.Add(orDefault(client.AccessTokenLifetime, s.accessTTL))

	genReq := GenerateRequest{
		Client:    client,
		User:      g.user,
		Scope:     g.scope,
		IssuedAt:  now,
		ExpiresAt: &accessExpiresAt,
	}

	access, err := s.generator.GenerateAccessToken(ctx, genReq)
	if err != nil {
		return nil, AsError(fmt.Errorf("generate access token: %w", err))
	}

	tok := &Token{
		AccessToken:          access,
		AccessTokenExpiresAt: &accessExpiresAt,
		Scope:                g.scope,
		ClientID:             client.ID,
		User:                 g.user,
	}
	if g.user != nil {
		tok.UserID = g.user.ID
	}

	if g.issueRefresh {
		if g.refreshToken != "" {
			tok.RefreshToken = g.refreshToken
			tok.RefreshTokenExpiresAt = g.refreshTokenExpiresAt
		} else {
			refreshExpiresAt := now.Add(orDefault(client.RefreshTokenLifetime, s.refreshTTL))
			genReq.ExpiresAt = &refreshExpiresAt

			refresh, err := s.generator.GenerateRefreshToken(ctx, genReq)
			if err != nil {
				return nil, AsError(fmt.Errorf("generate refresh token: %w", err))
			}
			tok.RefreshToken = refresh
			tok.RefreshTokenExpiresAt = &refreshExpiresAt
		}
	}

	saved, err := s.model.(TokenSaver).SaveToken(ctx, tok, client, g.user)
	if err != nil {
		return nil, modelError(CapSaveToken, err)
	}
	if saved == nil {
		saved = tok
	}

	return saved, nil
}

func newTokenBody(tok *Token, now time.Time) TokenBody {
	body := TokenBody{
		AccessToken:  tok.AccessToken,
		TokenType:    "bearer",
		RefreshToken: tok.RefreshToken,
		Scope:        tok.Scope,
	}

	if tok.AccessTokenExpiresAt != nil {
		if secs := math.Ceil(tok.AccessTokenExpiresAt.Sub(now).Seconds()); secs > 0 {
			body.ExpiresIn = int64(secs)
		}
	}

	return body
}
