package oauthhttp

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

// ErrorBody is the JSON error document. Only these fields are ever
// serialized; the cause stays server side.
type ErrorBody struct {
	Code             int    `json:"code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// WriteError writes err as a protocol error response. Errors carrying a
// redirect URI become a 302; everything else is a JSON body with the
// error's status and headers.
func WriteError(w http.ResponseWriter, err error) {
	e := oauth.AsError(err)

	if e.RedirectURI != "" {
		if location, rerr := oauth.ErrorRedirect(e); rerr == nil {
			w.Header().Set("Location", location)
			w.WriteHeader(http.StatusFound)
			return
		}
	}

	h := w.Header()
	for k, vs := range e.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	h.Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)

	_ = json.NewEncoder(w).Encode(ErrorBody{
		Code:             e.Status,
		Error:            string(e.Kind),
		ErrorDescription: e.Description,
	})
}

// writeResponse flushes a committed engine response.
func writeResponse(w http.ResponseWriter, res *oauth.Response) {
	if !res.Written() {
		return
	}

	h := w.Header()
	for k, vs := range res.Header {
		h[k] = append([]string(nil), vs...)
	}

	if res.Body == nil {
		w.WriteHeader(res.Status)
		return
	}

	h.Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	_ = json.NewEncoder(w).Encode(res.Body)
}
