package authsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGrants(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TokenPath, r.URL.Path)
		_ = r.ParseForm()

		w.Header().Set("Content-Type", "application/json")
		id, secret, ok := r.BasicAuth()
		if !ok || id != "cli" || secret != "s3cret" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{
				Code:             http.StatusBadRequest,
				Error:            ErrorCodeInvalidClient,
				ErrorDescription: "Invalid client: client is invalid",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "at-" + r.PostForm.Get("grant_type"),
			TokenType:   "bearer",
			ExpiresIn:   3600,
			Scope:       r.PostForm.Get("scope"),
		})
	}))
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL)
	ctx := t.Context()

	tok, err := client.ClientCredentialsGrant(ctx, "cli", "s3cret", []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, "at-client_credentials", tok.AccessToken)
	require.Equal(t, "a b", tok.Scope)

	tok, err = client.PasswordGrant(ctx, "cli", "s3cret", "alice", "pw", nil)
	require.NoError(t, err)
	require.Equal(t, "at-password", tok.AccessToken)

	tok, err = client.RefreshGrant(ctx, "cli", "s3cret", "rt")
	require.NoError(t, err)
	require.Equal(t, "at-refresh_token", tok.AccessToken)

	tok, err = client.ExchangeAuthorizationCode(ctx, "cli", "s3cret", "code", "http://app/cb")
	require.NoError(t, err)
	require.Equal(t, "at-authorization_code", tok.AccessToken)

	_, err = client.ClientCredentialsGrant(ctx, "cli", "wrong", nil)
	var oe *OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, http.StatusBadRequest, oe.StatusCode)
	require.Equal(t, ErrorCodeInvalidClient, oe.Code)
	require.Equal(t, "Invalid client: client is invalid", oe.Description)
}

func TestGetPrincipal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="Service"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PrincipalResponse{ClientID: "cli", UserID: "usr_1", Username: "alice"})
	}))
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL)

	me, err := client.GetPrincipal(t.Context(), "at")
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)

	_, err = client.GetPrincipal(t.Context(), "bad")
	require.True(t, IsErrorCode(err, ErrorCodeInvalidToken))
}

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		code   string
		desc   string
	}{
		{
			name:   "protocol body",
			status: http.StatusBadRequest,
			body:   `{"code":400,"error":"invalid_grant","error_description":"Invalid grant: refresh token is invalid"}`,
			code:   ErrorCodeInvalidGrant,
			desc:   "Invalid grant: refresh token is invalid",
		},
		{
			name:   "plain text from a proxy",
			status: http.StatusBadGateway,
			body:   "bad gateway",
			code:   ErrorCodeServerError,
			desc:   "HTTP 502: Bad Gateway",
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   "",
			code:   ErrorCodeServerError,
			desc:   "HTTP 429: Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := parseErrorResponse(&http.Response{StatusCode: tt.status}, []byte(tt.body))
			var oe *OAuth2Error
			require.ErrorAs(t, err, &oe)
			require.Equal(t, tt.status, oe.StatusCode)
			require.Equal(t, tt.code, oe.Code)
			require.Equal(t, tt.desc, oe.Description)
		})
	}

	require.NoError(t, parseErrorResponse(&http.Response{StatusCode: http.StatusOK}, nil))
}
