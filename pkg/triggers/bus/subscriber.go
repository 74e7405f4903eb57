// Package bus runs flows requested through flow.triggered events.
package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/triggers"
)

type Subscriber struct {
	subscriber eventbus.EventSubscriber
	runner     triggers.Runner
	logger     *slog.Logger
}

func NewSubscriber(subscriber eventbus.EventSubscriber, runner triggers.Runner, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		subscriber: subscriber,
		runner:     runner,
		logger:     logger.With("module", "bus_trigger"),
	}
}

// Start registers the handler and begins consuming until ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.subscriber.Handle(events.FlowTriggeredEvent, s.handleFlowTriggered)
	if err != nil {
		return fmt.Errorf("failed to register %s handler: %w", events.FlowTriggeredEvent, err)
	}

	err = s.subscriber.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to flow triggers: %w", err)
	}

	s.logger.InfoContext(ctx, "Listening for flow triggers")

	return nil
}

func (s *Subscriber) handleFlowTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.FlowTriggered)
	if !ok {
		s.logger.ErrorContext(ctx, "Unexpected event payload", "type", fmt.Sprintf("%T", event))

		return nil
	}

	s.logger.InfoContext(ctx, "Processing flow triggered event",
		"flow_id", triggered.FlowID,
		"event_id", triggered.ID,
	)

	return triggers.Run(ctx, s.logger, s.runner, triggered.FlowID, triggered.InputData, triggered.ActorID)
}
