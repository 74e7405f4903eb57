package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/persistence"
)

// CommonFlags are shared by every binary that runs flows.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (file path, sqlite:// or postgres://)",
			Value:   "file://./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing node plugins",
			Value:   "",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "API key used by ai-openai nodes",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Usage:   "API key used by ai-gemini nodes",
			Sources: cli.EnvVars("GEMINI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (pretty, text, json)",
			Value:   "pretty",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP (configured with OTEL_EXPORTER_OTLP_* variables)",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

// EventBusFlags select and configure the event bus.
func EventBusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka broker addresses",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
	}
}

// NodeDepsFrom reads the node credentials from the command flags.
func NodeDepsFrom(command *cli.Command, channels persistence.ChannelStore) NodeDeps {
	return NodeDeps{
		Channels:     channels,
		OpenAIAPIKey: command.String("openai-api-key"),
		GeminiAPIKey: command.String("gemini-api-key"),
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

// NewTracing returns the tracer for serviceName and a shutdown function.
// Without --tracing the global no-op tracer is used.
// nolint:ireturn
func NewTracing(ctx context.Context, command *cli.Command, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	if !command.Bool("tracing") {
		return otelhelper.Tracer(serviceName), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}
