package oauth

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Content types the engines care about.
const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json"
)

// Request is a transport neutral view of an inbound request. Engines only
// read from it.
type Request struct {
	Method string
	Header http.Header
	Query  url.Values
	Body   url.Values
}

// NewRequest builds a Request, defaulting nil maps so lookups never panic.
func NewRequest(method string, header http.Header, query, body url.Values) *Request {
	if header == nil {
		header = http.Header{}
	}
	if query == nil {
		query = url.Values{}
	}
	if body == nil {
		body = url.Values{}
	}

	return &Request{
		Method: strings.ToUpper(method),
		Header: header,
		Query:  query,
		Body:   body,
	}
}

// ContentType returns the lower-cased media type without parameters, or an
// empty string when the header is missing or unparsable.
func (r *Request) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

// Is reports whether the request content type is mediaType.
func (r *Request) Is(mediaType string) bool {
	return r.ContentType() == mediaType
}

// Param returns a parameter from the body, falling back to the query string.
func (r *Request) Param(name string) string {
	if v := r.Body.Get(name); v != "" {
		return v
	}
	return r.Query.Get(name)
}
