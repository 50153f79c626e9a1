package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// Paths served by oauthd.
const (
	TokenPath     = "/oauth/token"
	AuthorizePath = "/oauth/authorize"
	PrincipalPath = "/v1/me"
	LivezPath     = "/livez"
	ReadyzPath    = "/readyz"
	JWKSPath      = "/.well-known/jwks.json"
)

// SDKClient is a client for the oauthd demo server.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client with a 10 second timeout. A trailing
// slash on baseURL is ignored.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
