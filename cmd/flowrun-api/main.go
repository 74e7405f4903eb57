package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/log"
	"github.com/dukex/flowrun/pkg/triggers/bus"
	"github.com/dukex/flowrun/pkg/workflow"
)

const defaultPort = 9091

func main() {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
	}
	flags = append(flags, cmd.CommonFlags()...)
	flags = append(flags, cmd.EventBusFlags()...)

	command := &cli.Command{
		Name:                  "flowrun-api",
		Usage:                 "Manage and run flows over HTTP",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing flowrun API")

			tracer, shutdownTracing, err := cmd.NewTracing(ctx, command, "flowrun-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, command.String("plugins-path"), cmd.NodeDepsFrom(command, persistence))

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "flowrun-api", command.StringSlice("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			executor := workflow.NewExecutor(persistence, persistence, registry,
				workflow.WithLogger(logger),
				workflow.WithTracer(tracer),
				workflow.WithListener(eventbus.NewRunPublisher(eventBus, logger)),
			)

			// With the in-process bus nobody else can receive triggers.
			if provider := command.String("event-bus"); provider == "" || provider == "gochannel" {
				triggered := workflow.NewExecutor(persistence, persistence, registry,
					workflow.WithLogger(logger),
					workflow.WithTracer(tracer),
					workflow.WithMode("event"),
					workflow.WithListener(eventbus.NewRunPublisher(eventBus, logger)),
				)

				if err := bus.NewSubscriber(eventBus, triggered, logger).Start(ctx); err != nil {
					return err
				}
			}

			api := NewAPI(logger, persistence, registry, executor, eventBus)

			return api.Start(ctx, command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("api").Error("flowrun-api failed", "error", err)
		os.Exit(1)
	}
}
