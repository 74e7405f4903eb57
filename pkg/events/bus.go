package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/flowrun/pkg/models"
)

// Topic is the event bus topic every lifecycle event is published on.
const Topic = "flowrun.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowTriggeredEvent          EventType = "flow.triggered"
	FlowExecutionStartedEvent   EventType = "flow.execution.started"
	FlowExecutionCompletedEvent EventType = "flow.execution.completed"
	FlowExecutionFailedEvent    EventType = "flow.execution.failed"
	NodeExecutionFinishedEvent  EventType = "node.execution.finished"
	NodeExecutionFailedEvent    EventType = "node.execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FlowTriggered asks a worker to run a flow.
type FlowTriggered struct {
	BaseEvent

	InputData map[string]any `json:"input_data,omitempty"`
	ActorID   string         `json:"actor_id,omitempty"`
}

func (e FlowTriggered) GetType() EventType {
	return FlowTriggeredEvent
}

type FlowExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Mode        string `json:"mode"`
}

func (e FlowExecutionStarted) GetType() EventType {
	return FlowExecutionStartedEvent
}

// FlowExecutionCompleted covers completed, partial and cancelled runs.
type FlowExecutionCompleted struct {
	BaseEvent

	ExecutionID    string                 `json:"execution_id"`
	Status         models.ExecutionStatus `json:"status"`
	CompletedNodes int                    `json:"completed_nodes"`
	TotalNodes     int                    `json:"total_nodes"`
	DurationMs     int64                  `json:"duration_ms"`
}

func (e FlowExecutionCompleted) GetType() EventType {
	return FlowExecutionCompletedEvent
}

type FlowExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e FlowExecutionFailed) GetType() EventType {
	return FlowExecutionFailedEvent
}

type NodeExecutionFinished struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	OutputData  map[string]any `json:"output_data"`
}

func (e NodeExecutionFinished) GetType() EventType {
	return NodeExecutionFinishedEvent
}

type NodeExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Error       string `json:"error"`
}

func (e NodeExecutionFailed) GetType() EventType {
	return NodeExecutionFailedEvent
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}
