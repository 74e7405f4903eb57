package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes/trigger"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
)

var errDiskFull = errors.New("disk full")

// memoryStore keeps a copy of every write so tests can inspect the history.
type memoryStore struct {
	mu sync.Mutex

	flows           map[string]*models.Flow
	executionWrites []models.Execution
	nodeWrites      []models.NodeExecution

	// failOn names the operation that returns errDiskFull.
	failOn string
}

func newMemoryStore(flows ...*models.Flow) *memoryStore {
	s := &memoryStore{flows: make(map[string]*models.Flow)}
	for _, flow := range flows {
		s.flows[flow.ID] = flow
	}

	return s
}

func (s *memoryStore) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn == "FlowByID" {
		return nil, errDiskFull
	}

	flow, ok := s.flows[id]
	if !ok {
		return nil, persistence.NewFlowError("get", id, persistence.ErrFlowNotFound)
	}

	return flow, nil
}

func (s *memoryStore) CreateExecution(_ context.Context, execution *models.Execution) error {
	return s.recordExecution("CreateExecution", execution)
}

func (s *memoryStore) UpdateExecution(_ context.Context, execution *models.Execution) error {
	return s.recordExecution("UpdateExecution", execution)
}

func (s *memoryStore) CreateNodeExecution(_ context.Context, nodeExecution *models.NodeExecution) error {
	return s.recordNode("CreateNodeExecution", nodeExecution)
}

func (s *memoryStore) UpdateNodeExecution(_ context.Context, nodeExecution *models.NodeExecution) error {
	return s.recordNode("UpdateNodeExecution", nodeExecution)
}

func (s *memoryStore) recordExecution(op string, execution *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn == op {
		return errDiskFull
	}

	s.executionWrites = append(s.executionWrites, *execution)

	return nil
}

func (s *memoryStore) recordNode(op string, nodeExecution *models.NodeExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn == op {
		return errDiskFull
	}

	s.nodeWrites = append(s.nodeWrites, *nodeExecution)

	return nil
}

// lastExecution returns the most recent persisted state of the run.
func (s *memoryStore) lastExecution() models.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executionWrites[len(s.executionWrites)-1]
}

// nodeRecords returns the latest persisted state of every node record, in
// creation order.
func (s *memoryStore) nodeRecords() []models.NodeExecution {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int)

	var records []models.NodeExecution

	for _, write := range s.nodeWrites {
		if i, ok := index[write.ID]; ok {
			records[i] = write

			continue
		}

		index[write.ID] = len(records)
		records = append(records, write)
	}

	return records
}

func nodeIDs(records []models.NodeExecution) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.NodeID)
	}

	return ids
}

// tickingClock advances by step on every reading.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex

	current := start

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now := current
		current = current.Add(step)

		return now
	}
}

var testStart = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry(slog.New(slog.DiscardHandler))
	reg.Register(trigger.Info(), trigger.NewTriggerNode(func() time.Time { return testStart }))

	reg.Register(protocol.NodeInfo{Type: "action-ok"}, protocol.HandlerFunc(
		func(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
			return models.NodeOutput{"ok": true, "echo": req.Config["value"]}, nil
		}))

	reg.Register(protocol.NodeInfo{Type: "action-fail"}, protocol.HandlerFunc(
		func(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
			return models.NodeOutput{"error": fmt.Sprintf("%s exploded", req.NodeID)}, nil
		}))

	reg.Register(protocol.NodeInfo{Type: "action-raise"}, protocol.HandlerFunc(
		func(context.Context, protocol.Request) (models.NodeOutput, error) {
			return nil, errors.New("handler crashed")
		}))

	return reg
}

func node(id, nodeType string, config map[string]any) models.Node {
	return models.Node{
		ID:   id,
		Type: "custom",
		Data: models.NodeData{Type: nodeType, Label: "Node " + id, Config: config},
	}
}

func edge(source, target string) models.Edge {
	return models.Edge{ID: source + "-" + target, Source: source, Target: target}
}

func flowOf(id string, nodes []models.Node, edges ...models.Edge) *models.Flow {
	return &models.Flow{
		ID:   id,
		Name: "flow " + id,
		Data: models.FlowData{Nodes: nodes, Edges: edges},
	}
}

func newTestExecutor(store *memoryStore, runner NodeRunner, opts ...Option) *Executor {
	opts = append([]Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(tickingClock(testStart, 10*time.Millisecond)),
	}, opts...)

	return NewExecutor(store, store, runner, opts...)
}
