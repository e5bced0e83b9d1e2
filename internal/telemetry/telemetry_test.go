package telemetry

import (
	"context"
	"testing"

	"github.com/jjenkins/wcivf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledInstallsNoop(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, config.TelemetryConfig{}, "wcivf", "test")
	require.NoError(t, err)

	_, span := Tracer().Start(ctx, "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	counter, err := Meter().Int64Counter("wcivf.test")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	assert.NoError(t, p.Shutdown(ctx))
}

func TestInitEnabled(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, config.TelemetryConfig{Enabled: true}, "wcivf", "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = Init(ctx, config.TelemetryConfig{}, "wcivf", "test")
	})

	_, span := Tracer().Start(ctx, "import.run")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(ctx))
}
