package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// newRequest builds a request for path on the server. A non-empty
// accessToken is sent as a bearer credential.
func (c *SDKClient) newRequest(
	ctx context.Context,
	method, path, accessToken string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req, nil
}

// do sends req and decodes the body into target when the status is one of
// accepted. Any other status is parsed as an error body. The status is
// returned either way so callers can tell accepted statuses apart.
func (c *SDKClient) do(req *http.Request, target any, accepted ...int) (int, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	ok := false
	for _, s := range accepted {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		return resp.StatusCode, parseErrorResponse(resp, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// getJSON is a GET of path expecting 200.
func (c *SDKClient) getJSON(ctx context.Context, path, accessToken string, target any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, target, http.StatusOK)
	return err
}
