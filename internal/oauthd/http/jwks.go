package http

import (
	"net/http"

	"github.com/aussiebroadwan/oauthkit/pkg/authsdk"
	"github.com/aussiebroadwan/oauthkit/pkg/httpx"
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify JWT access tokens. Only served when the token format is jwt.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(signer *jwtx.Signer) http.HandlerFunc {
	jwks := authsdk.JWKSResponse(signer.JWKS())
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, jwks)
	}
}
