package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/log"
	"github.com/dukex/flowrun/pkg/triggers/queue"
	"github.com/dukex/flowrun/pkg/workflow"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL of the run queue (disabled when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "redis-queue",
			Usage:   "Redis list holding run requests",
			Value:   queue.DefaultQueue,
			Sources: cli.EnvVars("REDIS_QUEUE"),
		},
		&cli.BoolFlag{
			Name:    "schedules",
			Usage:   "Run flows from their trigger-schedule nodes",
			Value:   true,
			Sources: cli.EnvVars("SCHEDULES_ENABLED"),
		},
		&cli.DurationFlag{
			Name:    "schedule-reload",
			Usage:   "How often stored schedules are re-read",
			Value:   time.Minute,
			Sources: cli.EnvVars("SCHEDULE_RELOAD"),
		},
	}
	flags = append(flags, cmd.CommonFlags()...)
	flags = append(flags, cmd.EventBusFlags()...)

	command := &cli.Command{
		Name:                  "flowrun-worker",
		EnableShellCompletion: true,
		Usage:                 "Run flows from the event bus, a Redis queue and schedules",
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowrun-worker").With("workerId", workerID)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing flowrun worker")

			tracer, shutdownTracing, err := cmd.NewTracing(ctx, command, "flowrun-worker")
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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "flowrun-worker", command.StringSlice("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			publisher := eventbus.NewRunPublisher(eventBus, logger)
			executors := func(mode string) *workflow.Executor {
				return workflow.NewExecutor(persistence, persistence, registry,
					workflow.WithLogger(logger),
					workflow.WithTracer(tracer),
					workflow.WithMode(mode),
					workflow.WithListener(publisher),
				)
			}

			options := WorkerOptions{
				RedisQueue:     command.String("redis-queue"),
				Schedules:      command.Bool("schedules"),
				ScheduleReload: command.Duration("schedule-reload"),
			}

			if url := command.String("redis-url"); url != "" {
				client, err := queue.NewClient(ctx, url)
				if err != nil {
					return err
				}

				defer func() {
					if err := client.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close Redis client", "error", err)
					}
				}()

				options.RedisClient = client
			}

			return NewWorker(workerID, persistence, eventBus, executors, options, logger).Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("flowrun-worker").Error("flowrun-worker failed", "error", err)
		os.Exit(1)
	}
}
