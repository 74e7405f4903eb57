package main

import (
	"context"
	"fmt"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/workflow"
)

// runFlow stores flow, runs it and prints every event. It returns the
// final status of the run.
func runFlow(
	ctx context.Context,
	executor *workflow.Executor,
	store persistence.Persistence,
	flow *models.Flow,
	input map[string]any,
	actorID string,
	p *printer,
) (models.ExecutionStatus, error) {
	if err := services.NewFlowValidator().Validate(flow); err != nil {
		return "", err
	}

	if err := store.SaveFlow(ctx, flow); err != nil {
		return "", fmt.Errorf("failed to store flow: %w", err)
	}

	var status models.ExecutionStatus

	for event := range executor.ExecuteWithEvents(ctx, flow.ID, input, actorID) {
		p.Print(event)

		switch data := event.Data.(type) {
		case events.ExecutionFinished:
			status = data.Status
		case events.ExecutionError:
			status = models.ExecutionStatusFailed
		}
	}

	return status, nil
}
