// Package main provides the flowrun API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/web"
	"github.com/dukex/flowrun/pkg/websocket"
	"github.com/dukex/flowrun/pkg/workflow"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    *workflow.Executor
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

// NewAPI wires the API. eventBus may be nil, which disables /trigger.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	executor *workflow.Executor,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		executor:    executor,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) executionService() *services.Execution {
	var publisher eventbus.EventPublisher
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	return services.NewExecution(a.executor, a.persistence, publisher, a.logger)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		services.NewFlow(a.persistence),
		a.executionService(),
		a.validate,
		a.registry,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowrun API")
	})

	web.Mount(app, handlers)
	websocket.NewServer(a.executionService(), a.logger).Mount(app)

	return app
}

// Start serves the API, including the WebSocket run stream, until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()
	errs := make(chan error, 1)

	go func() {
		a.logger.InfoContext(ctx, "API listener started", "port", port)

		err := app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil {
			errs <- err
		}
	}()

	var serveErr error

	select {
	case serveErr = <-errs:
	case <-ctx.Done():
	}

	a.logger.InfoContext(ctx, "Shutting down API")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return errors.Join(serveErr, app.ShutdownWithContext(shutdownCtx))
}
