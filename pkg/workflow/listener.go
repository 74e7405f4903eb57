package workflow

import (
	"context"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
)

// Listener observes run progress. It is called synchronously on the run's
// goroutine; execution is the live record and must not be retained or
// modified. It is nil for the executionError of a flow that could not be
// loaded.
type Listener interface {
	OnEvent(ctx context.Context, execution *models.Execution, event events.Event)
}

type ListenerFunc func(ctx context.Context, execution *models.Execution, event events.Event)

func (f ListenerFunc) OnEvent(ctx context.Context, execution *models.Execution, event events.Event) {
	f(ctx, execution, event)
}
