package oauth

import (
	"net/http"
	"regexp"
)

var bearerHeader = regexp.MustCompile(`^Bearer (\S+)$`)

// ResolveBearerToken returns the single access token presented with req.
//
// A token may travel in the Authorization header, the access_token query
// parameter or the access_token body parameter, and exactly one of them may
// be used. A malformed header still counts as a presented token.
func ResolveBearerToken(req *Request) (string, error) {
	header := req.Header.Get("Authorization")
	query := req.Query.Get("access_token")
	body := req.Body.Get("access_token")

	presented := 0
	for _, v := range []string{header, query, body} {
		if v != "" {
			presented++
		}
	}

	if presented > 1 {
		return "", NewError(KindInvalidRequest, "Invalid request: only one method may be used to authenticate at a time")
	}

	switch {
	case header != "":
		m := bearerHeader.FindStringSubmatch(header)
		if m == nil {
			return "", NewError(KindInvalidRequest, "Invalid request: malformed authorization header")
		}
		return m[1], nil

	case query != "":
		return query, nil

	case body != "":
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			return "", NewError(KindInvalidRequest, "Invalid request: method cannot be GET when putting the token in the body")
		}
		if !req.Is(ContentTypeForm) {
			return "", NewError(KindInvalidRequest, "Invalid request: content type must be application/x-www-form-urlencoded when putting the token in the body")
		}
		return body, nil
	}

	return "", NewError(KindInvalidRequest, "Invalid request: the access token was not found")
}
