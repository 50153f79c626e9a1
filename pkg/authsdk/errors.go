package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// OAuth2 Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeAccessDenied         = "access_denied"
	ErrorCodeInvalidArgument      = "invalid_argument"
	ErrorCodeServerError          = "server_error"
)

// ============================================================================
// OAuth2Error
// ============================================================================

// OAuth2Error is a decoded error response from the server.
type OAuth2Error struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Code is the error kind (e.g., "invalid_request", "invalid_grant")
	Code string

	// Description is a human-readable description of the error
	Description string
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsErrorCode reports whether err is an *OAuth2Error with the given code.
func IsErrorCode(err error, code string) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == code
}

// parseErrorResponse turns a non-2xx response into a typed error. Bodies the
// server did not write (proxies, rate limiters) fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// WWW-Authenticate carries the kind for bare 401s.
	if resp.StatusCode == http.StatusUnauthorized {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeInvalidToken,
			Description: http.StatusText(resp.StatusCode),
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
