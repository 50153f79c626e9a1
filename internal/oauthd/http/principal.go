package http

import (
	"net/http"

	"github.com/aussiebroadwan/oauthkit/pkg/authsdk"
	"github.com/aussiebroadwan/oauthkit/pkg/httpx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/oauthhttp"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

// PrincipalHandler godoc
//
//	@Summary		Current principal
//	@Description	Returns the client and user behind the bearer token.
//	@Tags			Resources
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.PrincipalResponse	"client_id, user_id, username, scope, expires_at"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/me [get].
func PrincipalHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := oauth.PrincipalFromContext(r.Context())
	if !ok {
		slogx.FromContext(r.Context()).Warn("principal handler mounted without authenticate")
		oauthhttp.WriteError(w, oauth.NewError(oauth.KindInvalidToken, "Invalid token: the access token provided is invalid"))
		return
	}

	response := authsdk.PrincipalResponse{
		ClientID: p.ClientID,
		UserID:   p.UserID,
		Scope:    p.Scope,
	}
	if p.User != nil {
		response.Username = p.User.Username
	}
	if p.Token != nil && p.Token.AccessTokenExpiresAt != nil {
		response.ExpiresAt = p.Token.AccessTokenExpiresAt.Unix()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
