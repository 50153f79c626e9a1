package authsdk

import (
	"context"
	"errors"
	"net/http"
)

// ErrNotReady is returned by GetReadiness alongside the decoded report when
// the server answers 503.
var ErrNotReady = errors.New("authsdk: server not ready")

// GetLiveness reports whether the process is up.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.getJSON(ctx, LivezPath, "", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness reports whether the server can reach its token store. A
// degraded server yields both the report and ErrNotReady.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, ReadyzPath, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	status, err := c.do(req, &health, http.StatusOK, http.StatusServiceUnavailable)
	if err != nil {
		return nil, err
	}
	if status == http.StatusServiceUnavailable {
		return &health, ErrNotReady
	}
	return &health, nil
}

// GetJWKS fetches the keys that verify JWT access tokens. Servers issuing
// opaque tokens answer 404.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	var jwks JWKSResponse
	if err := c.getJSON(ctx, JWKSPath, "", &jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}
