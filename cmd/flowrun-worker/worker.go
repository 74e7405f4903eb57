// Package main provides the flowrun worker, which runs flows requested
// through the event bus, a Redis queue or cron schedules.
package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/triggers/bus"
	"github.com/dukex/flowrun/pkg/triggers/queue"
	"github.com/dukex/flowrun/pkg/triggers/schedule"
	"github.com/dukex/flowrun/pkg/workflow"
)

// ExecutorFactory builds an executor recording runs with the given mode.
type ExecutorFactory func(mode string) *workflow.Executor

type WorkerOptions struct {
	RedisClient    redis.UniversalClient
	RedisQueue     string
	Schedules      bool
	ScheduleReload time.Duration
	StopTimeout    time.Duration
}

type Worker struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	executors   ExecutorFactory
	options     WorkerOptions
	logger      *slog.Logger
}

func NewWorker(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	executors ExecutorFactory,
	options WorkerOptions,
	logger *slog.Logger,
) *Worker {
	if options.StopTimeout == 0 {
		options.StopTimeout = 30 * time.Second
	}

	return &Worker{
		id:          id,
		persistence: persistence,
		eventBus:    eventBus,
		executors:   executors,
		options:     options,
		logger:      logger.With("module", "flowrun_worker", "worker_id", id),
	}
}

// Start runs every configured source and blocks until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	if w.eventBus != nil {
		err := bus.NewSubscriber(w.eventBus, w.executors("event"), w.logger).Start(ctx)
		if err != nil {
			return err
		}
	}

	var stops []func(context.Context) error

	if w.options.RedisClient != nil {
		consumer, err := queue.NewTrigger(w.options.RedisClient, w.options.RedisQueue, w.executors("queue"), w.logger)
		if err != nil {
			return err
		}

		if err := consumer.Start(ctx); err != nil {
			return err
		}

		stops = append(stops, consumer.Stop)
	}

	if w.options.Schedules {
		scheduler := schedule.NewScheduler(w.persistence, w.executors("schedule"), w.logger)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}

		stops = append(stops, scheduler.Stop)

		if w.options.ScheduleReload > 0 {
			go w.reloadSchedules(ctx, scheduler)
		}
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	<-ctx.Done()

	w.logger.InfoContext(ctx, "Shutting down worker")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.options.StopTimeout)
	defer cancel()

	var errs []error
	for _, stop := range stops {
		errs = append(errs, stop(stopCtx))
	}

	return errors.Join(errs...)
}

func (w *Worker) reloadSchedules(ctx context.Context, scheduler *schedule.Scheduler) {
	ticker := time.NewTicker(w.options.ScheduleReload)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := scheduler.Reload(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to reload schedules", "error", err)

				continue
			}

			w.logger.DebugContext(ctx, "Schedules reloaded", "jobs", count)
		}
	}
}
