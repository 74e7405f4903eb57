// Package triggers starts flow runs from sources other than the API: the
// event bus, a Redis queue and cron schedules.
package triggers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/workflow"
)

// Runner executes a stored flow. *workflow.Executor implements it.
type Runner interface {
	ExecuteAs(ctx context.Context, flowID string, input map[string]any, actorID string) (*models.Execution, error)
}

// Run executes flowID and logs the outcome. Missing flows and cancelled runs
// are not reported as errors since retrying them cannot succeed.
func Run(ctx context.Context, logger *slog.Logger, runner Runner, flowID string, input map[string]any, actorID string) error {
	execution, err := runner.ExecuteAs(ctx, flowID, input, actorID)

	switch {
	case err == nil:
		logger.InfoContext(ctx, "Flow run finished",
			"flow_id", flowID,
			"execution_id", execution.ID,
			"status", execution.Status,
		)

		return nil

	case errors.Is(err, persistence.ErrFlowNotFound):
		logger.WarnContext(ctx, "Triggered flow does not exist", "flow_id", flowID)

		return nil

	case errors.Is(err, workflow.ErrCancelled):
		logger.WarnContext(ctx, "Flow run cancelled", "flow_id", flowID)

		return nil

	default:
		logger.ErrorContext(ctx, "Flow run failed", "flow_id", flowID, "error", err)

		return err
	}
}
