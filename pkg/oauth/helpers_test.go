package oauth_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth/oauthtest"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newServer(t *testing.T, model any, mutate ...func(*oauth.Options)) (*oauth.Server, *oauthtest.Clock) {
	t.Helper()

	clock := oauthtest.NewClock(epoch)
	opts := oauth.Options{
		Model: model,
		Clock: clock.Now,
		TokenGenerator: oauthtest.StaticGenerator{
			AccessToken:       "access-1",
			RefreshToken:      "refresh-1",
			AuthorizationCode: "12345",
		},
	}
	for _, m := range mutate {
		m(&opts)
	}

	srv, err := oauth.NewServer(opts)
	require.NoError(t, err)
	return srv, clock
}

func formRequest(method string, body url.Values) *oauth.Request {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return oauth.NewRequest(method, h, nil, body)
}

// requireProtocolError asserts err is a protocol error of kind whose
// description contains desc.
func requireProtocolError(t *testing.T, err error, kind oauth.Kind, desc string) *oauth.Error {
	t.Helper()

	require.Error(t, err)
	require.True(t, oauth.IsProtocolError(err), "not a protocol error: %v", err)

	e := oauth.AsError(err)
	require.Equal(t, kind, e.Kind)
	require.Equal(t, kind.Status(), e.Status)
	require.Contains(t, e.Description, desc)
	return e
}

func ptr[T any](v T) *T { return &v }
