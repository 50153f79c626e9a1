package authsdk

import "context"

// GetPrincipal calls the protected /v1/me resource with accessToken.
func (c *SDKClient) GetPrincipal(ctx context.Context, accessToken string) (*PrincipalResponse, error) {
	var principal PrincipalResponse
	if err := c.getJSON(ctx, PrincipalPath, accessToken, &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}
