package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitWithoutExporters(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")

	shutdown, err := Init(context.Background())
	require.NoError(t, err)

	_, span := otel.Tracer(TracerName).Start(context.Background(), "test")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
