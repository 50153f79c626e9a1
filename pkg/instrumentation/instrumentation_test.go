package instrumentation_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/aussiebroadwan/oauthkit/pkg/instrumentation"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	inst.Metrics().RecordTokenIssued(ctx, "password")
	inst.Metrics().RecordOperationDuration(ctx, "token", time.Millisecond)

	_, span := inst.Tracer("oauth").Start(ctx, "noop")
	span.End()

	rec := httptest.NewRecorder()
	inst.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, inst.Shutdown(ctx))
}

func TestMetrics_RecordedWithManualReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	inst, err := instrumentation.New(instrumentation.Config{Enabled: true, MetricReader: reader})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	ctx := context.Background()
	m := inst.Metrics()
	m.RecordTokenIssued(ctx, "password")
	m.RecordTokenIssued(ctx, "password")
	m.RecordCodeIssued(ctx)
	m.RecordProtocolError(ctx, "token", "invalid_grant")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[metric.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["oauth.tokens.issued"])
	assert.Equal(t, int64(1), sums["oauth.codes.issued"])
	assert.Equal(t, int64(1), sums["oauth.errors"])
}

func TestPrometheusHandler(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{Enabled: true, ServiceName: "oauthd"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	inst.Metrics().RecordCodeIssued(context.Background())

	rec := httptest.NewRecorder()
	inst.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Regexp(t, `oauth[._]codes[._]issued`, rec.Body.String())
}

func TestRecordError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	inst, err := instrumentation.New(instrumentation.Config{
		Enabled:      true,
		MetricReader: sdkmetric.NewManualReader(),
		SpanExporter: exporter,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	tracer := inst.Tracer("oauth")

	_, failed := tracer.Start(context.Background(), "failed")
	instrumentation.RecordError(failed, errors.New("boom"))
	failed.End()

	_, ok := tracer.Start(context.Background(), "ok")
	instrumentation.RecordError(ok, nil)
	instrumentation.SetSpanSuccess(ok)
	ok.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}
