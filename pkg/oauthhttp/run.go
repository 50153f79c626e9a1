package oauthhttp

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/aussiebroadwan/oauthkit/pkg/oauth"
)

// outcome is the tagged result of one engine call. At most one of
// principal, code and token is set on success.
type outcome struct {
	principal *oauth.Principal
	code      *oauth.AuthorizationCode
	token     *oauth.Token
	err       error
}

// attach returns ctx carrying whatever the engine produced.
func (o outcome) attach(ctx context.Context) context.Context {
	switch {
	case o.principal != nil:
		return oauth.WithPrincipal(ctx, o.principal)
	case o.code != nil:
		return oauth.WithAuthorizationCode(ctx, o.code)
	case o.token != nil:
		return oauth.WithToken(ctx, o.token)
	}
	return ctx
}

// run calls fn on its own goroutine and delivers exactly one outcome. The
// channel is buffered so the goroutine never blocks once the caller has
// stopped listening (request aborted).
func run(ctx context.Context, fn func(context.Context) outcome) <-chan outcome {
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- outcome{err: oauth.AsError(fmt.Errorf("engine panic: %v\n%s", rec, debug.Stack()))}
			}
		}()

		ch <- fn(ctx)
	}()

	return ch
}
