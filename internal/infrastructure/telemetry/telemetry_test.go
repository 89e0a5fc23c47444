package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{Enabled: false, ServiceName: "test-service"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1.0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, MetricsConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.Nil(t, lp.ZapCore(zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	core, recorded := observer.New(zapcore.InfoLevel)
	lp.LogStartup(zap.New(core))
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "OTEL Logs disabled", recorded.All()[0].Message)
}

func TestLevelFilterCore(t *testing.T) {
	inner, recorded := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	child := core.With([]zapcore.Field{{Key: "k", Type: zapcore.StringType, String: "v"}})
	for _, lvl := range []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel} {
		entry := zapcore.Entry{Level: lvl, Message: lvl.String()}
		if ce := child.Check(entry, nil); ce != nil {
			ce.Write()
		}
	}

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "warn", recorded.All()[0].Message)
}

func TestCounterAndHistogram(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	counter, err := NewCounter(meter, "exports_total", "Exports", "1")
	require.NoError(t, err)
	counter.Inc(ctx, attribute.String("result", "ok"))
	counter.Add(ctx, 2, attribute.String("result", "ok"))

	hist, err := NewHistogram(meter, HistogramOpts{Name: "latency", Unit: "s", Buckets: []float64{0.1, 1}})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 250*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum, ok := byName["exports_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	h, ok := byName["latency"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
}

func TestStartSpanAndRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := StartSpan(context.Background(), "person.export", attribute.Int("person.count", 2))
	RecordError(span, errors.New("boom"))
	span.End()

	_, ok := StartSpan(context.Background(), "person.list")
	RecordError(ok, nil)
	SetOK(ok)
	ok.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "person.export", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("person.count", 2))
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}
