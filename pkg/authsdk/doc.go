/*
Package authsdk is a small client for the oauthd demo server.

# Overview

SDKClient wraps the token and authorization endpoints, the protected
/v1/me resource and the health probes:

	client := authsdk.NewSDKClient("http://localhost:8080")

	// Machine-to-machine token
	tok, err := client.ClientCredentialsGrant(ctx, "cli_svc", secret, nil)

	// Who does this token belong to?
	me, err := client.GetPrincipal(ctx, tok.AccessToken)

# Authorization code flow

A user who already holds an access token can mint a code for another client
and exchange it:

	code, err := client.AuthorizeWithBearerToken(ctx, userToken, "cli_app", redirectURI, "state-1", nil)
	tokens, err := client.ExchangeAuthorizationCode(ctx, "cli_app", secret, code, redirectURI)

Browsers follow BuildAuthorizeURL instead and the callback is decoded with
ParseAuthorizationCallback.

# Errors

Non-2xx responses decode into *OAuth2Error, whose Code is the protocol error
kind and StatusCode the HTTP status:

	var oe *authsdk.OAuth2Error
	if errors.As(err, &oe) && oe.Code == authsdk.ErrorCodeInvalidGrant {
		// re-authenticate
	}

GetReadiness is the exception: a 503 still decodes the report and returns it
with ErrNotReady.
*/
package authsdk
