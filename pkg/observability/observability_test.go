package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/partsync/pkg/config"
)

func TestFromConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	cfg := FromConfig(config.ObservabilityConfig{
		EnableTracing:     true,
		TracingSampleRate: 0.5,
		ServiceName:       "tickets-sync",
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "tickets-sync", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 0.5, cfg.SamplingRate)
}

func TestInitialize_Disabled(t *testing.T) {
	require.NoError(t, Initialize(TracingConfig{Enabled: false}))
	assert.Nil(t, provider)
	require.NoError(t, Shutdown(context.Background()))
}

func TestInitialize_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Initialize(TracingConfig{
		Enabled:      true,
		ServiceName:  "partsync-test",
		SamplingRate: 1,
		Writer:       &buf,
	}))

	_, span := StartSpan(context.Background(), "checkpoint.save")
	span.SetAttribute("stream", "tickets")
	span.End(nil)

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "checkpoint.save")
	assert.Contains(t, buf.String(), "tickets")
	assert.Nil(t, provider)
}

func TestSpan_End(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)

	_, ok := StartSpan(context.Background(), "ok")
	ok.SetAttribute("partitions", 3)
	ok.SetAttribute("compressed", true)
	ok.AddEvent("restored")
	ok.End(nil)

	_, failed := StartSpan(context.Background(), "failed")
	failed.End(errors.New("store unavailable"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Len(t, spans[0].Attributes(), 2)
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "store unavailable", spans[1].Status().Description)
}

func TestRecordCheckpointSize(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	ctx := context.Background()
	RecordCheckpointSize(ctx, "tickets", "file", 512)
	RecordRestoredPartitions(ctx, "tickets", 4)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["partsync.checkpoint.size"])
	assert.True(t, names["partsync.checkpoint.restored_partitions"])
}
