package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
)

// RunPublisher forwards run progress to the bus. It satisfies the
// executor's listener contract; publish failures are logged and never
// affect the run.
type RunPublisher struct {
	publisher EventPublisher
	logger    *slog.Logger
}

func NewRunPublisher(publisher EventPublisher, logger *slog.Logger) *RunPublisher {
	return &RunPublisher{publisher: publisher, logger: logger.With("module", "run_publisher")}
}

func (p *RunPublisher) OnEvent(ctx context.Context, execution *models.Execution, event events.Event) {
	if execution == nil {
		return
	}

	busEvent := translate(execution, event)
	if busEvent == nil {
		return
	}

	err := p.publisher.Publish(context.WithoutCancel(ctx), execution.FlowID, busEvent)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish run event",
			"execution_id", execution.ID,
			"event_type", busEvent.GetType(),
			"error", err,
		)
	}
}

func translate(execution *models.Execution, event events.Event) Event {
	switch data := event.Data.(type) {
	case events.ExecutionStarted:
		return events.FlowExecutionStarted{
			BaseEvent:   events.NewBaseEvent(events.FlowExecutionStartedEvent, execution.FlowID),
			ExecutionID: data.ExecutionID,
			Mode:        data.Mode,
		}
	case events.NodeExecutionAfter:
		if data.Error != nil {
			return events.NodeExecutionFailed{
				BaseEvent:   events.NewBaseEvent(events.NodeExecutionFailedEvent, execution.FlowID),
				ExecutionID: data.ExecutionID,
				NodeID:      data.NodeID,
				Error:       data.Error.Message,
			}
		}

		return events.NodeExecutionFinished{
			BaseEvent:   events.NewBaseEvent(events.NodeExecutionFinishedEvent, execution.FlowID),
			ExecutionID: data.ExecutionID,
			NodeID:      data.NodeID,
			OutputData:  data.Data,
		}
	case events.ExecutionFinished:
		duration := data.FinishedAt.Sub(execution.StartedAt).Milliseconds()

		if data.Status == models.ExecutionStatusFailed {
			return events.FlowExecutionFailed{
				BaseEvent:   events.NewBaseEvent(events.FlowExecutionFailedEvent, execution.FlowID),
				ExecutionID: data.ExecutionID,
				Error:       execution.ErrorMessage,
				DurationMs:  duration,
			}
		}

		return events.FlowExecutionCompleted{
			BaseEvent:      events.NewBaseEvent(events.FlowExecutionCompletedEvent, execution.FlowID),
			ExecutionID:    data.ExecutionID,
			Status:         data.Status,
			CompletedNodes: execution.CompletedNodes,
			TotalNodes:     execution.TotalNodes,
			DurationMs:     duration,
		}
	case events.ExecutionError:
		return events.FlowExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.FlowExecutionFailedEvent, execution.FlowID),
			ExecutionID: data.ExecutionID,
			Error:       data.Error,
		}
	default:
		return nil
	}
}
