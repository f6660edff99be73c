package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := InitTracing(ctx, config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.5}, "test")
	assert.Error(t, err)

	_, err = InitTracing(ctx, config.TracingConfig{Enabled: true, Exporter: "jaeger", SampleRate: 1}, "test")
	assert.Error(t, err)

	_, err = InitTracing(ctx, config.TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1}, "test")
	assert.Error(t, err)
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := initTracing(ctx, config.TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "conflicts-test",
		SampleRate:  1,
	}, "1.2.3", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(ctx, "span-under-test")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "span-under-test")
	assert.Contains(t, buf.String(), "conflicts-test")
}

func TestInitTracingNoneExporter(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 0.5}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
