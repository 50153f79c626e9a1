package oauth

import (
	"net/url"
	"strings"
)

// CodeRedirect returns redirectURI with code and state appended.
func CodeRedirect(redirectURI, code, state string) (string, error) {
	return appendQuery(redirectURI, "code", code, "state", state)
}

// ErrorRedirect returns the redirect target for an error that carries a
// RedirectURI.
func ErrorRedirect(e *Error) (string, error) {
	return appendQuery(e.RedirectURI,
		"error", string(e.Kind),
		"error_description", e.Description,
		"state", e.State,
	)
}

// appendQuery adds key/value pairs in order, skipping empty values and
// keeping any query the registered URI already has. url.Values is not used
// because it sorts keys and encodes spaces as '+'.
func appendQuery(base string, kv ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}

	var b strings.Builder
	b.WriteString(u.RawQuery)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encodeComponent(kv[i]))
		b.WriteByte('=')
		b.WriteString(encodeComponent(kv[i+1]))
	}

	u.RawQuery = b.String()
	return u.String(), nil
}

// componentUnescaper restores what encodeURIComponent leaves alone but
// QueryEscape does not. QueryEscape turns a literal '+' into %2B, so every
// '+' left is a space.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
