package telemetry

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_PROTOCOL",
		"OTEL_SERVICE_NAME",
	} {
		t.Setenv(key, "") // register restore
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "acp-agent", cfg.ServiceName)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http")
	t.Setenv("OTEL_SERVICE_NAME", "kiro")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "kiro", cfg.ServiceName)
}

func TestInitStdout(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, Config{Protocol: ProtocolStdout, ServiceName: "test"})
	require.NoError(t, err)

	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.ForceFlush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestInitUnknownProtocol(t *testing.T) {
	_, err := Init(context.Background(), Config{Protocol: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProtocol))
}
