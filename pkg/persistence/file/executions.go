package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

func (fp *Persistence) CreateExecution(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := writeJSON(fp.path(executionsDir, execution.ID), execution); err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (fp *Persistence) UpdateExecution(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	path := fp.path(executionsDir, execution.ID)

	var stored models.Execution

	found, err := readJSON(path, &stored)
	if err != nil {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, err)
	}

	if !found {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, persistence.ErrExecutionNotFound)
	}

	if err := writeJSON(path, execution); err != nil {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, err)
	}

	return nil
}

func (fp *Persistence) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	var execution models.Execution

	found, err := readJSON(fp.path(executionsDir, id), &execution)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	if !found {
		return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

// ExecutionsByFlow returns the runs of a flow, most recent first.
func (fp *Persistence) ExecutionsByFlow(_ context.Context, flowID string) ([]*models.Execution, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(fp.root, executionsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make([]*models.Execution, 0), nil
		}

		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		var execution models.Execution

		_, err := readJSON(filepath.Join(fp.root, executionsDir, entry.Name()), &execution)
		if err != nil {
			return nil, err
		}

		if execution.FlowID == flowID {
			executions = append(executions, &execution)
		}
	}

	slices.SortFunc(executions, func(a, b *models.Execution) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}

		return strings.Compare(b.ID, a.ID)
	})

	return executions, nil
}

// node records of one run are kept together in creation order.
func (fp *Persistence) nodeExecutionsPath(executionID string) string {
	return fp.path(nodeExecutionsDir, executionID)
}

func (fp *Persistence) CreateNodeExecution(_ context.Context, nodeExecution *models.NodeExecution) error {
	if err := validateID(nodeExecution.ExecutionID); err != nil {
		return persistence.NewNodeExecutionError("CreateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	path := fp.nodeExecutionsPath(nodeExecution.ExecutionID)

	var records []*models.NodeExecution

	if _, err := readJSON(path, &records); err != nil {
		return persistence.NewNodeExecutionError("CreateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	records = append(records, nodeExecution)

	if err := writeJSON(path, records); err != nil {
		return persistence.NewNodeExecutionError("CreateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	return nil
}

func (fp *Persistence) UpdateNodeExecution(_ context.Context, nodeExecution *models.NodeExecution) error {
	if err := validateID(nodeExecution.ExecutionID); err != nil {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	path := fp.nodeExecutionsPath(nodeExecution.ExecutionID)

	var records []*models.NodeExecution

	if _, err := readJSON(path, &records); err != nil {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	i := slices.IndexFunc(records, func(r *models.NodeExecution) bool {
		return r.ID == nodeExecution.ID
	})
	if i < 0 {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, persistence.ErrNodeExecutionNotFound)
	}

	records[i] = nodeExecution

	if err := writeJSON(path, records); err != nil {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	return nil
}

// NodeExecutions returns the node records of a run in the order they were created.
func (fp *Persistence) NodeExecutions(_ context.Context, executionID string) ([]*models.NodeExecution, error) {
	if err := validateID(executionID); err != nil {
		return nil, err
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	records := make([]*models.NodeExecution, 0)

	if _, err := readJSON(fp.nodeExecutionsPath(executionID), &records); err != nil {
		return nil, err
	}

	return records, nil
}
