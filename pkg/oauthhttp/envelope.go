package oauthhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

// MaxBodyBytes caps the request body read into the envelope.
const MaxBodyBytes = 1 << 20

// ParseRequest builds the engine envelope from r. Form and JSON bodies are
// read for every method so that a body token on GET is still detected. The
// body is restored afterwards for handlers further down the chain.
func ParseRequest(r *http.Request) (*oauth.Request, error) {
	req := oauth.NewRequest(r.Method, r.Header.Clone(), r.URL.Query(), nil)

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return nil, oauth.NewError(oauth.KindInvalidRequest, "Invalid request: unable to read request body").WithCause(err)
	}
	if len(raw) > MaxBodyBytes {
		return nil, oauth.NewError(oauth.KindInvalidRequest, "Invalid request: request body is too large")
	}
	if len(raw) == 0 {
		return req, nil
	}

	switch req.ContentType() {
	case oauth.ContentTypeForm:
		body, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, oauth.NewError(oauth.KindInvalidRequest, "Invalid request: malformed form body").WithCause(err)
		}
		req.Body = body

	case oauth.ContentTypeJSON:
		body, err := flattenJSON(raw)
		if err != nil {
			return nil, oauth.NewError(oauth.KindInvalidRequest, "Invalid request: malformed JSON body").WithCause(err)
		}
		req.Body = body
	}

	return req, nil
}

// flattenJSON turns a JSON object into string parameters. Arrays become
// repeated values; nested objects are ignored.
func flattenJSON(raw []byte) (url.Values, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}

	out := url.Values{}
	for k, v := range obj {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				if s, ok := scalar(item); ok {
					out.Add(k, s)
				}
			}
		default:
			if s, ok := scalar(t); ok {
				out.Set(k, s)
			}
		}
	}
	return out, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
