package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments recorded by the protocol engine.
type Metrics struct {
	TokensIssued             metric.Int64Counter
	AuthorizationCodesIssued metric.Int64Counter
	Authentications          metric.Int64Counter
	ProtocolErrors           metric.Int64Counter
	OperationDuration        metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.TokensIssued, err = meter.Int64Counter(
		"oauth.tokens.issued",
		metric.WithDescription("Access tokens issued by the token endpoint"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens issued counter: %w", err)
	}

	m.AuthorizationCodesIssued, err = meter.Int64Counter(
		"oauth.codes.issued",
		metric.WithDescription("Authorization codes issued by the authorize endpoint"),
		metric.WithUnit("{code}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create codes issued counter: %w", err)
	}

	m.Authentications, err = meter.Int64Counter(
		"oauth.authentications",
		metric.WithDescription("Bearer token authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authentications counter: %w", err)
	}

	m.ProtocolErrors, err = meter.Int64Counter(
		"oauth.errors",
		metric.WithDescription("Protocol errors returned by the engine"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create errors counter: %w", err)
	}

	m.OperationDuration, err = meter.Float64Histogram(
		"oauth.operation.duration",
		metric.WithDescription("Duration of engine operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	return m, nil
}

// RecordTokenIssued records an issued token for grantType.
func (m *Metrics) RecordTokenIssued(ctx context.Context, grantType string) {
	m.TokensIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
	))
}

// RecordCodeIssued records an issued authorization code.
func (m *Metrics) RecordCodeIssued(ctx context.Context) {
	m.AuthorizationCodesIssued.Add(ctx, 1)
}

// RecordAuthentication records a bearer authentication with its result,
// either "success" or the error kind.
func (m *Metrics) RecordAuthentication(ctx context.Context, result string) {
	m.Authentications.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrResult, result),
	))
}

// RecordProtocolError records an error of kind raised by operation.
func (m *Metrics) RecordProtocolError(ctx context.Context, operation, kind string) {
	m.ProtocolErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperation, operation),
		attribute.String(AttrErrorKind, kind),
	))
}

// RecordOperationDuration records how long operation took.
func (m *Metrics) RecordOperationDuration(ctx context.Context, operation string, d time.Duration) {
	m.OperationDuration.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(
		attribute.String(AttrOperation, operation),
	))
}
