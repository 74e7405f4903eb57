package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/mohae/deepcopy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/template"
)

// runState is everything one run owns. It is never shared between runs.
type runState struct {
	executor  *Executor
	execution *models.Execution
	outputs   *template.Outputs
	input     map[string]any
	logger    *slog.Logger

	// yield is nil for batch runs. detached is set once the consumer stops
	// pulling; yield is never called again after that.
	yield    func(events.Event) bool
	detached bool

	executed int
	failed   int
}

func (r *runState) start(flowID, actorID string, totalNodes int) {
	e := r.executor

	r.outputs = template.NewOutputs()
	r.execution = &models.Execution{
		ID:          newID("exec"),
		FlowID:      flowID,
		Status:      models.ExecutionStatusRunning,
		Mode:        e.mode,
		TriggeredBy: actorID,
		StartedAt:   e.now(),
		InputData:   r.input,
		TotalNodes:  totalNodes,
	}
	r.logger = r.logger.With("execution_id", r.execution.ID)
}

func (r *runState) emit(ctx context.Context, event events.Event) {
	for _, listener := range r.executor.listeners {
		listener.OnEvent(ctx, r.execution, event)
	}

	if r.yield == nil || r.detached {
		return
	}

	if !r.yield(event) {
		r.detached = true
	}
}

// runNode executes a single node and returns its failure message, empty on
// success. The returned error is always a storage failure.
func (r *runState) runNode(ctx context.Context, node models.Node) (string, error) {
	e := r.executor
	nodeType := node.NodeType()
	label := node.Label()
	store := context.WithoutCancel(ctx)

	logger := r.logger.With("node_id", node.ID, "node_type", nodeType)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "node.execute",
		attribute.String(otelhelper.ExecutionIDKey, r.execution.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, nodeType),
	)
	defer span.End()

	config := template.Resolve(r.nodeConfig(node), r.outputs)

	record := &models.NodeExecution{
		ID:          newID("nexec"),
		ExecutionID: r.execution.ID,
		NodeID:      node.ID,
		NodeType:    nodeType,
		NodeLabel:   label,
		InputData:   config,
	}
	record.Start(e.now())

	if err := e.records.CreateNodeExecution(store, record); err != nil {
		return "", &StorageError{Op: "create node execution " + node.ID, Err: err}
	}

	logger.DebugContext(ctx, "Executing node")

	output, err := e.nodes.Execute(ctx, protocol.Request{
		ExecutionID:  r.execution.ID,
		NodeID:       node.ID,
		NodeType:     nodeType,
		Config:       config,
		PriorOutputs: r.outputs.Map(),
		Logger:       logger,
	})
	if err != nil {
		actionErr := &NodeActionError{NodeID: node.ID, NodeType: nodeType, Err: err}
		otelhelper.SetError(span, actionErr)

		output = models.ErrorOutput(err)
	}

	if _, err := json.Marshal(output); err != nil {
		actionErr := &NodeActionError{NodeID: node.ID, NodeType: nodeType, Err: fmt.Errorf("%w: %w", ErrUnencodableOutput, err)}
		otelhelper.SetError(span, actionErr)

		output = models.ErrorOutput(actionErr.Err)
	}

	record.Settle(output, e.now())

	if err := e.records.UpdateNodeExecution(store, record); err != nil {
		return "", &StorageError{Op: "update node execution " + node.ID, Err: err}
	}

	r.outputs.Set(node.ID, output)
	r.executed++

	failure, failed := output.Failure()
	if failed {
		r.failed++

		logger.WarnContext(ctx, "Node failed", "error", failure)
	} else {
		r.execution.CompletedNodes++

		logger.InfoContext(ctx, "Node completed", "execution_time_ms", *record.ExecutionTimeMs)
	}

	r.emit(ctx, events.NewNodeExecutionAfter(r.execution.ID, node.ID, label, output, failure))

	return failure, nil
}

// nodeConfig copies the stored config and merges the run input into it:
// input[nodeID] when it is an object, otherwise the whole input for triggers.
func (r *runState) nodeConfig(node models.Node) map[string]any {
	config, _ := deepcopy.Copy(node.Config()).(map[string]any)
	if config == nil {
		config = map[string]any{}
	}

	if override, ok := r.input[node.ID].(map[string]any); ok {
		maps.Copy(config, override)
	} else if node.IsTrigger() {
		maps.Copy(config, r.input)
	}

	return config
}

func (r *runState) skip(ctx context.Context, node models.Node) error {
	r.logger.WarnContext(ctx, "Skipping node outside the execution order", "node_id", node.ID)

	record := &models.NodeExecution{
		ID:          newID("nexec"),
		ExecutionID: r.execution.ID,
		NodeID:      node.ID,
		NodeType:    node.NodeType(),
		NodeLabel:   node.Label(),
		InputData:   map[string]any{},
	}
	record.Skip(MessageUnreachable)

	if err := r.executor.records.CreateNodeExecution(context.WithoutCancel(ctx), record); err != nil {
		return &StorageError{Op: "create node execution " + node.ID, Err: err}
	}

	return nil
}

func (r *runState) outcome() (models.ExecutionStatus, string) {
	switch {
	case r.failed == 0:
		return models.ExecutionStatusCompleted, ""
	case r.failed == r.executed:
		return models.ExecutionStatusFailed, MessageAllFailed
	default:
		return models.ExecutionStatusPartial, ""
	}
}

// finish persists the terminal state. The in-memory record only changes once
// the write succeeded so a failed write can still be reported as a failure.
func (r *runState) finish(ctx context.Context, status models.ExecutionStatus, message string) error {
	final := *r.execution
	if err := final.Finish(status, r.executor.now(), message); err != nil {
		return err
	}

	final.OutputData = r.outputs.Map()

	if err := r.executor.records.UpdateExecution(context.WithoutCancel(ctx), &final); err != nil {
		return &StorageError{Op: "update execution", Err: err}
	}

	*r.execution = final

	return nil
}

func (r *runState) fail(ctx context.Context, message string) error {
	if err := r.finish(ctx, models.ExecutionStatusFailed, message); err != nil {
		return err
	}

	r.logger.WarnContext(ctx, "Flow execution failed", "error", message)
	r.emit(ctx, events.NewExecutionError(r.execution.ID, message))

	return nil
}

func (r *runState) cancel(ctx context.Context, span trace.Span) (*models.Execution, error) {
	if err := r.finish(ctx, models.ExecutionStatusCancelled, MessageCancelled); err != nil {
		return r.abort(ctx, span, err)
	}

	r.logger.WarnContext(ctx, "Flow execution cancelled",
		"completed_nodes", r.execution.CompletedNodes,
		"consumer_gone", r.detached,
	)
	r.emit(ctx, events.NewExecutionFinished(r.execution.ID, *r.execution.CompletedAt, models.ExecutionStatusCancelled))

	if err := ctx.Err(); err != nil {
		return r.execution, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	return r.execution, ErrCancelled
}

// abort ends the run after a storage failure: the execution is marked failed
// with a best-effort write and the error is returned to the caller.
func (r *runState) abort(ctx context.Context, span trace.Span, err error) (*models.Execution, error) {
	message := err.Error()

	r.logger.ErrorContext(ctx, "Flow execution aborted", "error", err)
	otelhelper.SetError(span, err)

	if !r.execution.Status.Terminal() {
		_ = r.execution.Finish(models.ExecutionStatusFailed, r.executor.now(), message)
	}

	r.execution.OutputData = r.outputs.Map()

	if updateErr := r.executor.records.UpdateExecution(context.WithoutCancel(ctx), r.execution); updateErr != nil {
		r.logger.ErrorContext(ctx, "Failed to record aborted execution", "error", updateErr)
	}

	r.emit(ctx, events.NewExecutionError(r.execution.ID, message))

	return r.execution, err
}
