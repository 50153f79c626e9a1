package oauth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

func TestResolveBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		header      string
		query       string
		body        string
		want        string
		wantErr     string
	}{
		{name: "header", method: http.MethodGet, header: "Bearer foo", want: "foo"},
		{name: "query", method: http.MethodGet, query: "foo", want: "foo"},
		{name: "form body", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", body: "foo", want: "foo"},
		{name: "form body with charset", method: http.MethodPut, contentType: "application/x-www-form-urlencoded; charset=utf-8", body: "foo", want: "foo"},

		{name: "lowercase scheme", method: http.MethodGet, header: "bearer foo", wantErr: "malformed authorization header"},
		{name: "basic scheme", method: http.MethodGet, header: "Basic Zm9vOmJhcg==", wantErr: "malformed authorization header"},
		{name: "extra segment", method: http.MethodGet, header: "Bearer foo bar", wantErr: "malformed authorization header"},
		{name: "tab separator", method: http.MethodGet, header: "Bearer\tfoo", wantErr: "malformed authorization header"},
		{name: "body on GET", method: http.MethodGet, contentType: "application/x-www-form-urlencoded", body: "foo", wantErr: "method cannot be GET"},
		{name: "body on HEAD", method: http.MethodHead, contentType: "application/x-www-form-urlencoded", body: "foo", wantErr: "method cannot be GET"},
		{name: "body as json", method: http.MethodPost, contentType: "application/json", body: "foo", wantErr: "content type must be application/x-www-form-urlencoded"},
		{name: "header and query", method: http.MethodGet, header: "Bearer foo", query: "bar", wantErr: "only one method may be used to authenticate at a time"},
		{name: "malformed header and query", method: http.MethodGet, header: "junk", query: "bar", wantErr: "only one method may be used to authenticate at a time"},
		{name: "query and body", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", query: "foo", body: "bar", wantErr: "only one method may be used to authenticate at a time"},
		{name: "all three", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", header: "Bearer a", query: "b", body: "c", wantErr: "only one method may be used to authenticate at a time"},
		{name: "nothing", method: http.MethodGet, wantErr: "the access token was not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			if tt.contentType != "" {
				h.Set("Content-Type", tt.contentType)
			}
			q, b := url.Values{}, url.Values{}
			if tt.query != "" {
				q.Set("access_token", tt.query)
			}
			if tt.body != "" {
				b.Set("access_token", tt.body)
			}

			got, err := oauth.ResolveBearerToken(oauth.NewRequest(tt.method, h, q, b))
			if tt.wantErr != "" {
				requireProtocolError(t, err, oauth.KindInvalidRequest, tt.wantErr)
				require.ErrorIs(t, err, oauth.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
