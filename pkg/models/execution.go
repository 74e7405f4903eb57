package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrExecutionFinished is returned when a terminal execution is asked to change status.
var ErrExecutionFinished = errors.New("execution already finished")

// ExecutionStatus is the lifecycle state of a flow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPartial   ExecutionStatus = "partial"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s ExecutionStatus) Terminal() bool {
	return s != ExecutionStatusRunning
}

// Execution records one run of a flow.
type Execution struct {
	ID             string          `json:"id"`
	FlowID         string          `json:"flow_id"`
	Status         ExecutionStatus `json:"status"`
	Mode           string          `json:"mode"`
	TriggeredBy    string          `json:"triggered_by,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	InputData      map[string]any  `json:"input_data"`
	OutputData     map[string]any  `json:"output_data,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	TotalNodes     int             `json:"total_nodes"`
	CompletedNodes int             `json:"completed_nodes"`
}

// Finish moves the execution into a terminal status exactly once.
func (e *Execution) Finish(status ExecutionStatus, at time.Time, errorMessage string) error {
	if e.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrExecutionFinished, e.ID, e.Status)
	}

	if !status.Terminal() {
		return fmt.Errorf("cannot finish execution %s with status %s", e.ID, status)
	}

	e.Status = status
	e.CompletedAt = &at
	e.ErrorMessage = errorMessage

	return nil
}

// NodeExecutionStatus is the lifecycle state of one node within a run.
type NodeExecutionStatus string

const (
	NodeExecutionStatusPending   NodeExecutionStatus = "pending"
	NodeExecutionStatusRunning   NodeExecutionStatus = "running"
	NodeExecutionStatusCompleted NodeExecutionStatus = "completed"
	NodeExecutionStatusFailed    NodeExecutionStatus = "failed"
	NodeExecutionStatusSkipped   NodeExecutionStatus = "skipped"
)

// NodeExecution records the invocation of a single node.
type NodeExecution struct {
	ID              string              `json:"id"`
	ExecutionID     string              `json:"execution_id"`
	NodeID          string              `json:"node_id"`
	NodeType        string              `json:"node_type"`
	NodeLabel       string              `json:"node_label"`
	Status          NodeExecutionStatus `json:"status"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	ExecutionTimeMs *int64              `json:"execution_time_ms,omitempty"`
	InputData       map[string]any      `json:"input_data"`
	OutputData      map[string]any      `json:"output_data,omitempty"`
	ErrorMessage    string              `json:"error_message,omitempty"`
}

// Start marks the node as running.
func (n *NodeExecution) Start(at time.Time) {
	n.Status = NodeExecutionStatusRunning
	n.StartedAt = &at
}

// Settle records the handler output. An output carrying an error marks the
// node as failed.
func (n *NodeExecution) Settle(output NodeOutput, at time.Time) {
	n.OutputData = output
	n.CompletedAt = &at

	if n.StartedAt != nil {
		ms := max(at.Sub(*n.StartedAt).Milliseconds(), 0)
		n.ExecutionTimeMs = &ms
	}

	if msg, failed := output.Failure(); failed {
		n.Status = NodeExecutionStatusFailed
		n.ErrorMessage = msg

		return
	}

	n.Status = NodeExecutionStatusCompleted
}

// Skip records a node that was never invoked.
func (n *NodeExecution) Skip(reason string) {
	n.Status = NodeExecutionStatusSkipped
	n.ErrorMessage = reason
}

// NodeOutput is the free-form result of a node action.
type NodeOutput map[string]any

// ErrorOutput builds the conventional failure shape.
func ErrorOutput(err error) NodeOutput {
	return NodeOutput{"error": err.Error()}
}

// Failure returns the error message carried by the output, if any. Falsy
// values (nil, false, zero, empty strings, maps and lists) are not failures.
func (o NodeOutput) Failure() (string, bool) {
	v, ok := o["error"]
	if !ok || isFalsy(v) {
		return "", false
	}

	if s, ok := v.(string); ok {
		return s, true
	}

	if b, err := json.Marshal(v); err == nil {
		return string(b), true
	}

	return fmt.Sprint(v), true
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0
	case float32:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case int32:
		return x == 0
	case json.Number:
		f, err := x.Float64()

		return err == nil && f == 0
	case map[string]any:
		return len(x) == 0
	case NodeOutput:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	default:
		return false
	}
}
