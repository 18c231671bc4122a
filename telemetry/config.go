package telemetry

import (
	"github.com/kelseyhightower/envconfig"
)

// Exporter protocol selectors accepted by Config.Protocol.
const (
	ProtocolGRPC   = "grpc"
	ProtocolHTTP   = "http"
	ProtocolStdout = "stdout"
)

// Config selects where and how telemetry is exported. Zero config is
// usable: it points at a local OTLP collector over gRPC.
type Config struct {
	// Endpoint is the OTLP collector address, host:port.
	Endpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	// Protocol is one of grpc, http, or stdout. The stdout protocol
	// writes spans and metrics to stderr instead of a collector, which
	// keeps the proxied stdout stream clean.
	Protocol string `envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc"`
	// ServiceName becomes the service.name resource attribute.
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"acp-agent"`
}

// LoadConfig reads Config from the environment, applying defaults for
// anything unset.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
