package oauth

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/oauthkit/pkg/instrumentation"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"
)

// Default lifetimes.
const (
	DefaultAccessTokenLifetime       = time.Hour
	DefaultRefreshTokenLifetime      = 14 * 24 * time.Hour
	DefaultAuthorizationCodeLifetime = 5 * time.Minute
)

// Options configures a Server.
type Options struct {
	// Model is the data-access port. Required.
	Model any

	// Grants lists the enabled grant types. Empty enables all of them.
	Grants []string

	AccessTokenLifetime       time.Duration
	RefreshTokenLifetime      time.Duration
	AuthorizationCodeLifetime time.Duration

	// AlwaysIssueNewRefreshToken rotates refresh tokens on the refresh
	// grant. Nil means true.
	AlwaysIssueNewRefreshToken *bool

	// TokenGenerator defaults to RandomTokenGenerator.
	TokenGenerator TokenGenerator

	// Clock defaults to time.Now.
	Clock func() time.Time

	// Logger is used when the request context carries no logger.
	Logger *slog.Logger

	// Instrumentation defaults to a disabled (no-op) instance.
	Instrumentation *instrumentation.Instrumentation
}

// Server runs the authenticate, authorize and token flows against a model.
// It holds no per-request state and is safe for concurrent use.
type Server struct {
	model  any
	grants []string

	accessTTL  time.Duration
	refreshTTL time.Duration
	codeTTL    time.Duration
	rotate     bool

	generator TokenGenerator
	now       func() time.Time
	logger    *slog.Logger

	tracer  trace.Tracer
	metrics *instrumentation.Metrics
}

// NewServer validates opts and returns a Server. Model capabilities are
// checked on first use of each flow; use CheckModel to fail earlier.
func NewServer(opts Options) (*Server, error) {
	if opts.Model == nil {
		return nil, NewError(KindInvalidArgument, "Missing parameter: `model`")
	}

	grants := opts.Grants
	if len(grants) == 0 {
		grants = AllGrantTypes
	}
	for _, g := range grants {
		if !slices.Contains(AllGrantTypes, g) {
			return nil, newErrorf(KindInvalidArgument, "Invalid argument: unsupported grant type `%s`", g)
		}
	}

	inst := opts.Instrumentation
	if inst == nil {
		var err error
		inst, err = instrumentation.New(instrumentation.Config{})
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		model:      opts.Model,
		grants:     slices.Clone(grants),
		accessTTL:  orDefault(opts.AccessTokenLifetime, DefaultAccessTokenLifetime),
		refreshTTL: orDefault(opts.RefreshTokenLifetime, DefaultRefreshTokenLifetime),
		codeTTL:    orDefault(opts.AuthorizationCodeLifetime, DefaultAuthorizationCodeLifetime),
		rotate:     opts.AlwaysIssueNewRefreshToken == nil || *opts.AlwaysIssueNewRefreshToken,
		generator:  opts.TokenGenerator,
		now:        opts.Clock,
		logger:     opts.Logger,
		tracer:     inst.Tracer("oauth"),
		metrics:    inst.Metrics(),
	}

	if s.generator == nil {
		s.generator = RandomTokenGenerator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slogx.Discard()
	}

	return s, nil
}

// Grants returns the enabled grant types.
func (s *Server) Grants() []string { return slices.Clone(s.grants) }

func (s *Server) log(ctx context.Context) *slog.Logger {
	return slogx.FromContextOr(ctx, s.logger)
}

// observe starts a span for operation and returns a function that records
// the outcome in both the span and the metrics.
func (s *Server) observe(ctx context.Context, operation string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "oauth."+operation,
		trace.WithAttributes(attribute.String(instrumentation.AttrOperation, operation)),
	)

	return ctx, func(errp *error) {
		defer span.End()
		s.metrics.RecordOperationDuration(ctx, operation, time.Since(start))

		if errp == nil || *errp == nil {
			instrumentation.SetSpanSuccess(span)
			return
		}

		kind := string(AsError(*errp).Kind)
		span.SetAttributes(attribute.String(instrumentation.AttrErrorKind, kind))
		instrumentation.RecordError(span, *errp)
		s.metrics.RecordProtocolError(ctx, operation, kind)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
