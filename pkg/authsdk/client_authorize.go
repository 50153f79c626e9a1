package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// BuildAuthorizeURL constructs the URL a browser should be sent to for the
// authorization code flow. The request still needs a bearer token when it
// reaches the server; a front end usually attaches it.
//
// Example:
//
//	url := client.BuildAuthorizeURL("cli_app", "https://localhost/callback", "random-state", []string{"profile"})
func (c *SDKClient) BuildAuthorizeURL(
	clientID, redirectURI, state string,
	scopes []string,
) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", clientID)

	if redirectURI != "" {
		params.Set("redirect_uri", redirectURI)
	}

	if state != "" {
		params.Set("state", state)
	}

	if len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}

	return fmt.Sprintf("%s%s?%s", c.BaseURL, AuthorizePath, params.Encode())
}

// AuthorizeWithBearerToken asks the server for an authorization code on
// behalf of the user who owns accessToken. The server answers with a 302 to
// redirectURI; the code is read from its Location instead of following it.
//
// Errors delivered through the redirect (access_denied, unauthorized_client)
// come back as *OAuth2Error with StatusCode 302.
func (c *SDKClient) AuthorizeWithBearerToken(
	ctx context.Context,
	accessToken string,
	clientID, redirectURI, state string,
	scopes []string,
) (string, error) {
	data := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
	}
	if redirectURI != "" {
		data.Set("redirect_uri", redirectURI)
	}
	if state != "" {
		data.Set("state", state)
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	// Create HTTP client that doesn't follow redirects
	noRedirectClient := &http.Client{
		Transport: c.HTTPClient.Transport,
		Timeout:   c.HTTPClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := c.newRequest(ctx, http.MethodPost, AuthorizePath, accessToken, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := noRedirectClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusFound {
		return "", parseErrorResponse(resp, bodyBytes)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("redirect response missing Location header")
	}

	redirectURL, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	query := redirectURL.Query()
	if errorCode := query.Get("error"); errorCode != "" {
		return "", &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errorCode,
			Description: query.Get("error_description"),
		}
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect missing authorization code")
	}

	return code, nil
}

// ParseAuthorizationCallback extracts the code and state from the URL the
// server redirected to. An error redirect becomes *OAuth2Error.
//
// Example:
//
//	code, state, err := authsdk.ParseAuthorizationCallback("https://localhost/callback?code=xyz&state=abc")
//	if err != nil {
//	    // Handle error (e.g., user denied authorization)
//	}
//	// Verify state matches what you sent
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		return "", "", &OAuth2Error{
			StatusCode:  http.StatusFound,
			Code:        errorCode,
			Description: query.Get("error_description"),
		}
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}

	state = query.Get("state")

	return code, state, nil
}
