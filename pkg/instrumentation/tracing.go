package instrumentation

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by spans and metrics.
const (
	AttrOperation = "oauth.operation"
	AttrGrantType = "oauth.grant_type"
	AttrErrorKind = "oauth.error"
	AttrResult    = "oauth.result"
)

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks span as successful.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
