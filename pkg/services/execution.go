package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

// Runner is the part of the workflow executor the services rely on.
type Runner interface {
	ExecuteAs(ctx context.Context, flowID string, input map[string]any, actorID string) (*models.Execution, error)
	ExecuteWithEvents(ctx context.Context, flowID string, input map[string]any, actorID string) iter.Seq[events.Event]
}

// ExecutionDetail is a run together with its node records.
type ExecutionDetail struct {
	*models.Execution

	Nodes []*models.NodeExecution `json:"nodes"`
}

// Execution runs flows synchronously, as a stream, or asynchronously
// through the event bus, and reads back the recorded runs.
type Execution struct {
	runner      Runner
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewExecution wires the service. publisher may be nil when asynchronous
// triggering is not available.
func NewExecution(runner Runner, persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Execution {
	return &Execution{
		runner:      runner,
		persistence: persistence,
		publisher:   publisher,
		logger:      logger.With("module", "execution_service"),
	}
}

// Run executes the flow and returns its final record.
func (e *Execution) Run(ctx context.Context, flowID string, input map[string]any, actorID string) (*models.Execution, error) {
	return e.runner.ExecuteAs(ctx, flowID, input, actorID)
}

// Stream executes the flow lazily; stopping the iteration stops the run.
func (e *Execution) Stream(ctx context.Context, flowID string, input map[string]any, actorID string) iter.Seq[events.Event] {
	return e.runner.ExecuteWithEvents(ctx, flowID, input, actorID)
}

// ErrTriggerUnavailable is returned by Trigger when no bus is configured.
var ErrTriggerUnavailable = fmt.Errorf("%w: asynchronous triggering is not configured", ErrInvalidRequest)

// Trigger checks the flow exists and asks a worker to run it. It returns
// the id of the published event.
func (e *Execution) Trigger(ctx context.Context, flowID string, input map[string]any, actorID string) (string, error) {
	if e.publisher == nil {
		return "", ErrTriggerUnavailable
	}

	flow, err := e.persistence.FlowByID(ctx, flowID)
	if err != nil {
		return "", err
	}

	if flow == nil {
		return "", persistence.NewFlowError("Trigger", flowID, ErrFlowNotFound)
	}

	event := events.FlowTriggered{
		BaseEvent: events.NewBaseEvent(events.FlowTriggeredEvent, flowID),
		InputData: input,
		ActorID:   actorID,
	}

	err = e.publisher.Publish(ctx, flowID, event)
	if err != nil {
		return "", fmt.Errorf("failed to publish trigger for flow %s: %w", flowID, err)
	}

	e.logger.InfoContext(ctx, "Flow triggered", "flow_id", flowID, "event_id", event.ID)

	return event.ID, nil
}

func (e *Execution) FetchByID(ctx context.Context, id string) (*ExecutionDetail, error) {
	execution, err := e.persistence.ExecutionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := e.persistence.NodeExecutions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load node executions: %w", err)
	}

	return &ExecutionDetail{Execution: execution, Nodes: nodes}, nil
}

func (e *Execution) ListByFlow(ctx context.Context, flowID string) ([]*models.Execution, error) {
	executions, err := e.persistence.ExecutionsByFlow(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}
