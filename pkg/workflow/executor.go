// Package workflow runs stored flows node by node, recording every state
// transition and reporting progress as events.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go.jetify.com/typeid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/otelhelper"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
)

const DefaultMode = "manual"

// NodeRunner invokes the handler registered for a node type.
// *registry.Registry is the production implementation.
type NodeRunner interface {
	Execute(ctx context.Context, req protocol.Request) (models.NodeOutput, error)
}

type Executor struct {
	flows   persistence.FlowStore
	records persistence.ExecutionStore
	nodes   NodeRunner

	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
	ordering      graph.Ordering
	stopOnFailure bool
	runTimeout    time.Duration
	listeners     []Listener
	mode          string
}

func NewExecutor(flows persistence.FlowStore, records persistence.ExecutionStore, nodes NodeRunner, opts ...Option) *Executor {
	e := &Executor{
		flows:    flows,
		records:  records,
		nodes:    nodes,
		logger:   slog.Default(),
		tracer:   otelhelper.Tracer("flowrun/workflow"),
		now:      time.Now,
		ordering: graph.OrderTopological,
		mode:     DefaultMode,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("module", "workflow_executor")

	return e
}

// Execute runs flowID to completion and returns the final execution record.
// Node failures are reported through the record; the error is set when the
// flow does not exist, storage fails, or the run is cancelled.
func (e *Executor) Execute(ctx context.Context, flowID string, input map[string]any) (*models.Execution, error) {
	return e.run(ctx, flowID, input, "", nil)
}

// ExecuteAs is Execute recording actorID as the initiator of the run.
func (e *Executor) ExecuteAs(ctx context.Context, flowID string, input map[string]any, actorID string) (*models.Execution, error) {
	return e.run(ctx, flowID, input, actorID, nil)
}

// ExecuteWithEvents returns the run as a lazy event sequence. The run starts
// when the sequence is ranged over and advances only as events are consumed;
// breaking out of the loop cancels the remaining nodes.
func (e *Executor) ExecuteWithEvents(ctx context.Context, flowID string, input map[string]any, actorID string) iter.Seq[events.Event] {
	return func(yield func(events.Event) bool) {
		_, _ = e.run(ctx, flowID, input, actorID, yield)
	}
}

func (e *Executor) run(ctx context.Context, flowID string, input map[string]any, actorID string, yield func(events.Event) bool) (*models.Execution, error) {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "flow.execute", attribute.String(otelhelper.FlowIDKey, flowID))
	defer span.End()

	if input == nil {
		input = map[string]any{}
	}

	r := &runState{
		executor: e,
		input:    input,
		yield:    yield,
		logger:   e.logger.With("flow_id", flowID),
	}

	flow, err := e.flows.FlowByID(ctx, flowID)
	if err == nil && flow == nil {
		err = fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	if err != nil {
		message := MessageFlowNotFound
		if !errors.Is(err, ErrFlowNotFound) {
			err = &StorageError{Op: "fetch flow", Err: err}
			message = err.Error()
		}

		r.logger.ErrorContext(ctx, "Failed to fetch flow", "error", err)
		otelhelper.SetError(span, err)
		r.emit(ctx, events.NewExecutionError("", message))

		return nil, err
	}

	g := graph.FromFlow(flow)

	r.start(flowID, actorID, len(flow.Data.Nodes))
	span.SetAttributes(
		attribute.String(otelhelper.ExecutionIDKey, r.execution.ID),
		attribute.String(otelhelper.FlowNameKey, flow.Name),
	)

	if err := e.records.CreateExecution(ctx, r.execution); err != nil {
		err = &StorageError{Op: "create execution", Err: err}

		r.logger.ErrorContext(ctx, "Failed to create execution", "error", err)
		otelhelper.SetError(span, err)
		r.emit(ctx, events.NewExecutionError(r.execution.ID, err.Error()))

		return nil, err
	}

	r.logger.InfoContext(ctx, "Starting flow execution",
		"total_nodes", r.execution.TotalNodes,
		"mode", r.execution.Mode,
	)
	r.emit(ctx, events.NewExecutionStarted(r.execution.ID, r.execution.Mode))

	if len(g.Triggers()) == 0 {
		r.logger.WarnContext(ctx, "Flow has no trigger node")

		if err := r.fail(ctx, MessageNoTrigger); err != nil {
			return r.abort(ctx, span, err)
		}

		return r.execution, nil
	}

	order := g.Order(e.ordering)

	for _, node := range order {
		if r.detached || ctx.Err() != nil {
			return r.cancel(ctx, span)
		}

		r.emit(ctx, events.NewNodeExecutionBefore(r.execution.ID, node.ID, node.Label()))

		if r.detached {
			return r.cancel(ctx, span)
		}

		failure, err := r.runNode(ctx, node)
		if err != nil {
			return r.abort(ctx, span, err)
		}

		if failure != "" && e.stopOnFailure {
			message := fmt.Sprintf("Node %s failed: %s", node.Label(), failure)
			if err := r.fail(ctx, message); err != nil {
				return r.abort(ctx, span, err)
			}

			return r.execution, nil
		}
	}

	for _, node := range g.Unreached(order) {
		if err := r.skip(ctx, node); err != nil {
			return r.abort(ctx, span, err)
		}
	}

	status, message := r.outcome()

	if err := r.finish(ctx, status, message); err != nil {
		return r.abort(ctx, span, err)
	}

	r.logger.InfoContext(ctx, "Flow execution finished",
		"status", status,
		"completed_nodes", r.execution.CompletedNodes,
		"failed_nodes", r.failed,
		"duration", r.execution.CompletedAt.Sub(r.execution.StartedAt),
	)
	r.emit(ctx, events.NewExecutionFinished(r.execution.ID, *r.execution.CompletedAt, status))

	return r.execution, nil
}

func newID(prefix string) string {
	id, err := typeid.WithPrefix(prefix)
	if err != nil {
		panic(err)
	}

	return id.String()
}
