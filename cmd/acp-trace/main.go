// Command acp-trace runs an ACP agent behind a transparent stdio proxy
// that reconstructs a distributed trace of the conversation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/acp-trace/proxy"
	"github.com/bazelment/yoloswe/acp-trace/spans"
	"github.com/bazelment/yoloswe/acp-trace/telemetry"
)

var (
	otlpEndpoint  string
	otlpProtocol  string
	serviceName   string
	recordContent bool
	verbose       bool

	agentExitCode int
)

var rootCmd = &cobra.Command{
	Use:   "acp-trace [flags] <agent> [agent-args...]",
	Short: "Transparent tracing proxy for ACP agents",
	Long: `acp-trace sits between an editor and an ACP agent, relaying their
newline-delimited JSON-RPC traffic byte-for-byte while exporting
OpenTelemetry spans and metrics that reconstruct the session: one root
span per agent process, a span per RPC call, an invoke_agent span per
prompt, and a span per tool call. The agent command line follows the
flags and is executed verbatim.`,
	Args:         cobra.MinimumNArgs(1),
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	// Everything after the agent command belongs to the agent.
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint (default: $OTEL_EXPORTER_OTLP_ENDPOINT or localhost:4317)")
	rootCmd.Flags().StringVar(&otlpProtocol, "otlp-protocol", "", "Export protocol: grpc, http, or stdout (default: $OTEL_EXPORTER_OTLP_PROTOCOL or grpc)")
	rootCmd.Flags().StringVar(&serviceName, "service-name", "", "service.name resource attribute (default: $OTEL_SERVICE_NAME or acp-agent)")
	rootCmd.Flags().BoolVar(&recordContent, "record-content", false, "Record prompt, output, and tool payloads on spans")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
}

func run(cmd *cobra.Command, args []string) error {
	slog.SetDefault(newLogger())

	cfg, err := telemetry.LoadConfig()
	if err != nil {
		return fmt.Errorf("load telemetry config: %w", err)
	}
	if otlpEndpoint != "" {
		cfg.Endpoint = otlpEndpoint
	}
	if otlpProtocol != "" {
		cfg.Protocol = otlpProtocol
	}
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	ctx := cmd.Context()
	provider, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("shutdown telemetry", "error", err)
		}
	}()

	manager, err := spans.NewManager(
		provider.Tracer("acp-trace"),
		provider.Meter("acp-trace"),
		recordContent,
	)
	if err != nil {
		return fmt.Errorf("init span manager: %w", err)
	}

	p := proxy.New(manager, args[0], args[1:], proxy.WithFlusher(provider))
	code, err := p.Run(ctx)
	if err != nil {
		return err
	}
	agentExitCode = code
	return nil
}

// newLogger creates a structured logger with the configured verbosity.
// Logs go to stderr; stdout carries the proxied protocol stream.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	// The proxy is transparent down to the exit status.
	os.Exit(agentExitCode)
}
