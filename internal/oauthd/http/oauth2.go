package http

import (
	"net/http"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

// The token and authorize responses are written by the oauthhttp
// middleware in front of these handlers. They only run after a success,
// record what was issued, and must not write again.

// TokenHandler godoc
//
//	@Summary		Token endpoint
//	@Description	Issues tokens for the password, refresh_token, authorization_code and client_credentials grants.
//	@Description	Client credentials go in HTTP Basic or in client_id/client_secret.
//	@Tags			OAuth2
//	@Security		BasicAuth
//	@Accept			x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			grant_type		formData	string	true	"password, refresh_token, authorization_code or client_credentials"
//	@Param			username		formData	string	false	"password grant"
//	@Param			password		formData	string	false	"password grant"
//	@Param			refresh_token	formData	string	false	"refresh_token grant"
//	@Param			code			formData	string	false	"authorization_code grant"
//	@Param			redirect_uri	formData	string	false	"authorization_code grant"
//	@Param			scope			formData	string	false	"space-delimited scopes"
//	@Success		200				{object}	authsdk.TokenResponse
//	@Failure		400				{object}	authsdk.ErrorResponse	"Invalid request, client or grant"
//	@Failure		429				{object}	authsdk.ErrorResponse	"Rate limit exceeded"
//	@Failure		500				{object}	authsdk.ErrorResponse	"Server error"
//	@Router			/oauth/token [post].
func TokenHandler(_ http.ResponseWriter, r *http.Request) {
	tok, ok := oauth.TokenFromContext(r.Context())
	if !ok {
		return
	}
	slogx.FromContext(r.Context()).Info("token issued",
		"client_id", tok.ClientID,
		"user_id", tok.UserID,
		"scope", tok.Scope,
		"refresh", tok.RefreshToken != "",
	)
}

// AuthorizeHandler godoc
//
//	@Summary		Authorization endpoint
//	@Description	Issues an authorization code for the user who owns the bearer token and redirects to redirect_uri.
//	@Description	Errors found after the redirect URI is known are delivered on the redirect.
//	@Tags			OAuth2
//	@Security		BearerAuth
//	@Accept			x-www-form-urlencoded
//	@Param			response_type	query		string	true	"must be code"
//	@Param			client_id		query		string	true	"client requesting the code"
//	@Param			redirect_uri	query		string	false	"defaults to the client's first redirect URI"
//	@Param			state			query		string	false	"echoed on the redirect"
//	@Param			scope			query		string	false	"space-delimited scopes"
//	@Success		302				"Redirect with code and state"
//	@Failure		400				{object}	authsdk.ErrorResponse	"Invalid request or client"
//	@Failure		429				{object}	authsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/oauth/authorize [get]
//	@Router			/oauth/authorize [post].
func AuthorizeHandler(_ http.ResponseWriter, r *http.Request) {
	code, ok := oauth.AuthorizationCodeFromContext(r.Context())
	if !ok {
		return
	}
	slogx.FromContext(r.Context()).Info("authorization code issued",
		"client_id", code.ClientID,
		"user_id", code.UserID,
		"expires_at", code.ExpiresAt,
	)
}
