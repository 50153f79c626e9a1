package oauthhttp_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/oauthhttp"
)

func TestParseRequest_Form(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/oauth/token?foo=bar", strings.NewReader("grant_type=password&username=a"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	req, err := oauthhttp.ParseRequest(r)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "bar", req.Query.Get("foo"))
	assert.Equal(t, "password", req.Body.Get("grant_type"))
	assert.Equal(t, "a", req.Body.Get("username"))

	restored, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, "grant_type=password&username=a", string(restored))
}

func TestParseRequest_JSONIsFlattened(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/oauth/authorize",
		strings.NewReader(`{"client_id":"cli","n":12,"ok":true,"scopes":["a","b"],"nested":{"x":1}}`))
	r.Header.Set("Content-Type", "application/json")

	req, err := oauthhttp.ParseRequest(r)
	require.NoError(t, err)

	assert.Equal(t, "cli", req.Body.Get("client_id"))
	assert.Equal(t, "12", req.Body.Get("n"))
	assert.Equal(t, "true", req.Body.Get("ok"))
	assert.Equal(t, []string{"a", "b"}, req.Body["scopes"])
	assert.NotContains(t, req.Body, "nested")
}

func TestParseRequest_BodyOnGet(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/me", strings.NewReader("access_token=foo"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := oauthhttp.ParseRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "foo", req.Body.Get("access_token"))
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		desc        string
	}{
		{"malformed json", "application/json", `{"a":`, "malformed JSON body"},
		{"json array", "application/json", `["a"]`, "malformed JSON body"},
		{"too large", "application/x-www-form-urlencoded", strings.Repeat("a", oauthhttp.MaxBodyBytes+1), "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)

			_, err := oauthhttp.ParseRequest(r)
			require.Error(t, err)
			e := oauth.AsError(err)
			assert.Equal(t, oauth.KindInvalidRequest, e.Kind)
			assert.Contains(t, e.Description, tt.desc)
		})
	}
}

func TestParseRequest_UnknownContentTypeLeavesBodyEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader("grant_type=password"))
	r.Header.Set("Content-Type", "text/plain")

	req, err := oauthhttp.ParseRequest(r)
	require.NoError(t, err)
	assert.Empty(t, req.Body)
}
