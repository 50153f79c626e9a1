package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// ClientCredentialsGrant requests an access token for the client itself.
// No refresh token is returned.
func (c *SDKClient) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{"grant_type": {"client_credentials"}}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, clientID, clientSecret, data)
}

// PasswordGrant exchanges a user's credentials for tokens.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, clientID, clientSecret, data)
}

// RefreshGrant requests new tokens using a refresh token. With rotation on
// the old refresh token stops working once this returns.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	return c.requestToken(ctx, clientID, clientSecret, data)
}

// ExchangeAuthorizationCode trades a code from the authorize endpoint for
// tokens. redirectURI must match the one used when the code was issued.
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	return c.requestToken(ctx, clientID, clientSecret, data)
}

// requestToken posts a form to the token endpoint, authenticating the client
// with HTTP Basic as RFC 6749 section 2.3.1 prefers.
func (c *SDKClient) requestToken(
	ctx context.Context,
	clientID, clientSecret string,
	data url.Values,
) (*TokenResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, TokenPath, "", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(url.QueryEscape(clientID), url.QueryEscape(clientSecret))

	var tokenResp TokenResponse
	if _, err := c.do(req, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}
