package oauth

import (
	"context"
	"fmt"
	"net/url"
	"slices"
)

// Authorize runs the authorization code flow. On success it commits a
// redirect carrying the new code to res. Failures that happen once a
// redirect URI is known carry it (see Error.RedirectURI) so the caller can
// deliver them as a redirect too.
//
// A principal already present in ctx is used as the resource owner;
// otherwise the request must carry a valid bearer token.
func (s *Server) Authorize(ctx context.Context, req *Request, res *Response) (_ *AuthorizationCode, err error) {
	ctx, done := s.observe(ctx, "authorize")
	defer func() { done(&err) }()

	if err := CheckModel(s.model, CapGetClient, CapSaveAuthorizationCode); err != nil {
		return nil, err
	}

	principal, err := s.authorizePrincipal(ctx, req)
	if err != nil {
		return nil, err
	}

	client, redirectURI, err := s.authorizeClient(ctx, req)
	if err != nil {
		return nil, err
	}

	state := req.Param("state")
	redirectErr := func(e *Error) error {
		return e.WithRedirect(redirectURI, state)
	}

	if !slices.Contains(s.grants, GrantTypeAuthorizationCode) || !client.AllowsGrant(GrantTypeAuthorizationCode) {
		return nil, redirectErr(NewError(KindUnauthorizedClient, "Unauthorized client: `grant_type` is invalid"))
	}

	switch req.Param("response_type") {
	case "code":
	case "":
		return nil, redirectErr(NewError(KindInvalidRequest, "Missing parameter: `response_type`"))
	default:
		return nil, redirectErr(NewError(KindInvalidRequest, "Invalid parameter: `response_type`"))
	}

	scope := req.Param("scope")
	now := s.now()

	value, err := s.generator.GenerateAuthorizationCode(ctx, GenerateRequest{
		Client:   client,
		User:     principal.User,
		Scope:    scope,
		IssuedAt: now,
	})
	if err != nil {
		return nil, redirectErr(AsError(fmt.Errorf("generate authorization code: %w", err)))
	}

	code := &AuthorizationCode{
		Code:        value,
		ExpiresAt:   now.Add(s.codeTTL),
		RedirectURI: redirectURI,
		Scope:       scope,
		State:       state,
		ClientID:    client.ID,
		UserID:      principal.UserID,
		User:        principal.User,
	}

	saved, err := s.model.(AuthorizationCodeSaver).SaveAuthorizationCode(ctx, code, client, principal.User)
	if err != nil {
		return nil, redirectErr(AsError(modelError(CapSaveAuthorizationCode, err)))
	}
	if saved != nil && saved.Code != "" {
		code = saved
	}

	location, err := CodeRedirect(redirectURI, code.Code, state)
	if err != nil {
		return nil, NewError(KindInvalidRequest, "Invalid request: `redirect_uri` is not a valid URI").WithCause(err)
	}
	res.Redirect(location)

	s.metrics.RecordCodeIssued(ctx)
	s.log(ctx).Debug("authorization code issued", "client_id", client.ID, "user_id", principal.UserID)

	return code, nil
}

func (s *Server) authorizePrincipal(ctx context.Context, req *Request) (*Principal, error) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p, nil
	}

	if err := CheckModel(s.model, CapGetAccessToken); err != nil {
		return nil, err
	}

	bearer, err := ResolveBearerToken(req)
	if err != nil {
		return nil, NewError(KindAccessDenied, "Access denied: the request is not authenticated").WithCause(err)
	}

	p, err := s.authenticateToken(ctx, bearer)
	if err != nil {
		switch AsError(err).Kind {
		case KindInvalidArgument, KindServerError:
			return nil, err
		}
		return nil, NewError(KindAccessDenied, "Access denied: the request is not authenticated").WithCause(err)
	}

	return p, nil
}

// authorizeClient loads the client and settles the redirect URI.
func (s *Server) authorizeClient(ctx context.Context, req *Request) (*Client, string, error) {
	clientID := req.Param("client_id")
	if clientID == "" {
		return nil, "", NewError(KindInvalidRequest, "Missing parameter: `client_id`")
	}

	client, err := s.model.(ClientGetter).GetClient(ctx, clientID, "")
	if client, err = lookup(CapGetClient, client, err); err != nil {
		return nil, "", err
	}
	if client == nil {
		return nil, "", NewError(KindInvalidClient, "Invalid client: client credentials are invalid")
	}

	redirectURI := req.Param("redirect_uri")
	switch {
	case redirectURI != "":
		if !slices.Contains(client.RedirectURIs, redirectURI) {
			return nil, "", NewError(KindInvalidRequest, "Invalid request: `redirect_uri` does not match client value")
		}
	case len(client.RedirectURIs) == 1:
		redirectURI = client.RedirectURIs[0]
	default:
		return nil, "", NewError(KindInvalidRequest, "Missing parameter: `redirect_uri`")
	}

	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return nil, "", NewError(KindInvalidRequest, "Invalid request: `redirect_uri` is not a valid URI").WithCause(err)
	}

	return client, redirectURI, nil
}
