package workflow

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/flowrun/pkg/graph"
)

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithOrdering selects how nodes are linearised. The default is
// graph.OrderTopological.
func WithOrdering(ordering graph.Ordering) Option {
	return func(e *Executor) {
		e.ordering = ordering
	}
}

// WithStopOnFailure makes the first failed node fail the whole run. Remaining
// nodes are not invoked and the run ends with an executionError event.
func WithStopOnFailure(stop bool) Option {
	return func(e *Executor) {
		e.stopOnFailure = stop
	}
}

// WithListener registers a listener notified of every event of every run.
func WithListener(listener Listener) Option {
	return func(e *Executor) {
		e.listeners = append(e.listeners, listener)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithRunTimeout bounds a whole run. Zero, the default, means no limit.
func WithRunTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.runTimeout = timeout
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// WithMode sets the mode recorded on executions, "manual" by default.
func WithMode(mode string) Option {
	return func(e *Executor) {
		e.mode = mode
	}
}
