// Package oauthhttp runs the oauth engines inside a net/http middleware
// chain.
package oauthhttp

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aussiebroadwan/oauthkit/pkg/httpx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

// Engine is the protocol engine driven by the middleware. *oauth.Server
// implements it.
type Engine interface {
	Authenticate(ctx context.Context, req *oauth.Request) (*oauth.Principal, error)
	Authorize(ctx context.Context, req *oauth.Request, res *oauth.Response) (*oauth.AuthorizationCode, error)
	Token(ctx context.Context, req *oauth.Request, res *oauth.Response) (*oauth.Token, error)
}

var _ Engine = (*oauth.Server)(nil)

// ErrorHandler receives engine failures. err is always an *oauth.Error.
//
// In passthrough mode nothing has been written and the handler decides
// whether to respond and whether to call next. Otherwise the error response
// is already written and next is nil.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, next http.Handler)

type Options struct {
	// PassthroughErrors hands protocol errors to ErrorHandler instead of
	// writing them. invalid_argument is always written.
	PassthroughErrors bool

	// Debug logs the cause chain of every translated error.
	Debug bool

	// ErrorHandler is required with PassthroughErrors.
	ErrorHandler ErrorHandler

	// Logger is used when the request context carries none.
	Logger *slog.Logger
}

type Middleware struct {
	engine Engine
	opts   Options
	logger *slog.Logger
}

func New(engine Engine, opts Options) (*Middleware, error) {
	if engine == nil {
		return nil, oauth.NewError(oauth.KindInvalidArgument, "Missing parameter: `engine`")
	}
	if opts.PassthroughErrors && opts.ErrorHandler == nil {
		return nil, oauth.NewError(oauth.KindInvalidArgument, "Missing parameter: `ErrorHandler` is required with passthrough errors")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slogx.Discard()
	}

	return &Middleware{engine: engine, opts: opts, logger: logger}, nil
}

// Authenticate requires a valid bearer token and stores the principal in
// the request context (see oauth.PrincipalFromContext).
func (m *Middleware) Authenticate() httpx.Middleware {
	return m.wrap("authenticate", func(ctx context.Context, req *oauth.Request, _ *oauth.Response) outcome {
		p, err := m.engine.Authenticate(ctx, req)
		return outcome{principal: p, err: err}
	})
}

// Authorize runs the authorization code flow and writes the redirect. The
// issued code is stored in the request context (see
// oauth.AuthorizationCodeFromContext).
func (m *Middleware) Authorize() httpx.Middleware {
	return m.wrap("authorize", func(ctx context.Context, req *oauth.Request, res *oauth.Response) outcome {
		code, err := m.engine.Authorize(ctx, req, res)
		return outcome{code: code, err: err}
	})
}

// Token runs the token endpoint and writes the token response. The issued
// token is stored in the request context (see oauth.TokenFromContext).
func (m *Middleware) Token() httpx.Middleware {
	return m.wrap("token", func(ctx context.Context, req *oauth.Request, res *oauth.Response) outcome {
		tok, err := m.engine.Token(ctx, req, res)
		return outcome{token: tok, err: err}
	})
}

type engineCall func(context.Context, *oauth.Request, *oauth.Response) outcome

func (m *Middleware) wrap(op string, call engineCall) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContextOr(ctx, m.logger).With("oauth_op", op)
			gw := &guardWriter{ResponseWriter: w}

			var once sync.Once
			settle := func(fn func()) { once.Do(fn) }

			req, err := ParseRequest(r)
			if err != nil {
				settle(func() { m.fail(gw, r, log, err, next) })
				return
			}

			res := oauth.NewResponse()
			done := run(ctx, func(ctx context.Context) outcome {
				return call(ctx, req, res)
			})

			select {
			case out := <-done:
				if ctx.Err() != nil {
					gw.abort()
					log.Debug("request aborted before the engine settled")
					return
				}

				settle(func() {
					if out.err != nil {
						m.fail(gw, r, log, out.err, next)
						return
					}

					writeResponse(gw, res)
					next.ServeHTTP(gw, r.WithContext(out.attach(ctx)))
				})

			case <-ctx.Done():
				gw.abort()
				log.Debug("request aborted before the engine settled", "err", ctx.Err())
			}
		})
	}
}

func (m *Middleware) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, next http.Handler) {
	e := oauth.AsError(err)

	if m.opts.Debug && e.Unwrap() != nil {
		log.Error("oauth error cause", "error", e.Kind, "cause", e.Unwrap())
	}

	if m.opts.PassthroughErrors {
		if e.Kind == oauth.KindInvalidArgument {
			WriteError(w, e)
		}
		m.opts.ErrorHandler(w, r, e, next)
		return
	}

	log.Warn("oauth request rejected", "error", e.Kind, "status", e.Status, "description", e.Description)
	WriteError(w, e)

	if m.opts.ErrorHandler != nil {
		m.opts.ErrorHandler(w, r, e, nil)
	}
}
