package oauthhttp

import (
	"net/http"
	"sync/atomic"
)

// guardWriter turns every write into a no-op once the request has been
// aborted.
type guardWriter struct {
	http.ResponseWriter
	aborted atomic.Bool
}

func (g *guardWriter) abort() { g.aborted.Store(true) }

func (g *guardWriter) WriteHeader(code int) {
	if g.aborted.Load() {
		return
	}
	g.ResponseWriter.WriteHeader(code)
}

func (g *guardWriter) Write(p []byte) (int, error) {
	if g.aborted.Load() {
		return len(p), nil
	}
	return g.ResponseWriter.Write(p)
}

func (g *guardWriter) Unwrap() http.ResponseWriter { return g.ResponseWriter }
