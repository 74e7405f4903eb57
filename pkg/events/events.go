// Package events defines the progress events a flow run emits and the
// lifecycle events published on the event bus.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/models"
)

type EventType string

// Stream events, in the order a run emits them.
const (
	ExecutionStartedEvent    EventType = "executionStarted"
	NodeExecutionBeforeEvent EventType = "nodeExecutionBefore"
	NodeExecutionAfterEvent  EventType = "nodeExecutionAfter"
	ExecutionFinishedEvent   EventType = "executionFinished"
	ExecutionErrorEvent      EventType = "executionError"
)

// Event is one step of a run as seen by a streaming consumer.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type ExecutionStarted struct {
	ExecutionID string `json:"executionId"`
	Mode        string `json:"mode"`
}

type NodeExecutionBefore struct {
	ExecutionID string `json:"executionId"`
	NodeID      string `json:"nodeId"`
	NodeName    string `json:"nodeName"`
}

type ErrorDetail struct {
	Message string `json:"message"`
}

// NodeExecutionAfter carries either Data or Error, never both.
type NodeExecutionAfter struct {
	ExecutionID string            `json:"executionId"`
	NodeID      string            `json:"nodeId"`
	NodeName    string            `json:"nodeName"`
	Data        models.NodeOutput `json:"data,omitempty"`
	Error       *ErrorDetail      `json:"error,omitempty"`
}

type ExecutionFinished struct {
	ExecutionID string                 `json:"executionId"`
	FinishedAt  time.Time              `json:"finishedAt"`
	Status      models.ExecutionStatus `json:"status"`
}

type ExecutionError struct {
	ExecutionID string `json:"executionId,omitempty"`
	Error       string `json:"error"`
}

func NewExecutionStarted(executionID, mode string) Event {
	return Event{Type: ExecutionStartedEvent, Data: ExecutionStarted{ExecutionID: executionID, Mode: mode}}
}

func NewNodeExecutionBefore(executionID, nodeID, nodeName string) Event {
	return Event{
		Type: NodeExecutionBeforeEvent,
		Data: NodeExecutionBefore{ExecutionID: executionID, NodeID: nodeID, NodeName: nodeName},
	}
}

// NewNodeExecutionAfter reports output, or errMessage when it is not empty.
func NewNodeExecutionAfter(executionID, nodeID, nodeName string, output models.NodeOutput, errMessage string) Event {
	data := NodeExecutionAfter{ExecutionID: executionID, NodeID: nodeID, NodeName: nodeName}

	if errMessage != "" {
		data.Error = &ErrorDetail{Message: errMessage}
	} else {
		data.Data = output
	}

	return Event{Type: NodeExecutionAfterEvent, Data: data}
}

func NewExecutionFinished(executionID string, finishedAt time.Time, status models.ExecutionStatus) Event {
	return Event{
		Type: ExecutionFinishedEvent,
		Data: ExecutionFinished{ExecutionID: executionID, FinishedAt: finishedAt, Status: status},
	}
}

func NewExecutionError(executionID, message string) Event {
	return Event{Type: ExecutionErrorEvent, Data: ExecutionError{ExecutionID: executionID, Error: message}}
}

// Terminal reports whether no event can follow e.
func (e Event) Terminal() bool {
	return e.Type == ExecutionFinishedEvent || e.Type == ExecutionErrorEvent
}

// SSE encodes e as one server-sent events frame.
func SSE(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}

	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')

	return frame, nil
}
