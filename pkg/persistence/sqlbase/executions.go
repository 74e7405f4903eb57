package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

const executionColumns = `
	id
  , flow_id
  , status
  , mode
  , triggered_by
  , started_at
  , completed_at
  , input_data
  , output_data
  , error_message
  , total_nodes
  , completed_nodes
`

const nodeExecutionColumns = `
	id
  , execution_id
  , node_id
  , node_type
  , node_label
  , status
  , started_at
  , completed_at
  , execution_time_ms
  , input_data
  , output_data
  , error_message
`

func (s *Store) CreateExecution(ctx context.Context, execution *models.Execution) error {
	input, output, err := encodeData(execution.InputData, execution.OutputData)
	if err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO executions (id, flow_id, status, mode, triggered_by, started_at, completed_at,
			input_data, output_data, error_message, total_nodes, completed_nodes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		execution.ID,
		execution.FlowID,
		execution.Status,
		execution.Mode,
		execution.TriggeredBy,
		s.dialect.Time(execution.StartedAt),
		s.dialect.NullableTime(execution.CompletedAt),
		input,
		output,
		execution.ErrorMessage,
		execution.TotalNodes,
		execution.CompletedNodes,
	)
	if err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (s *Store) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	_, output, err := encodeData(nil, execution.OutputData)
	if err != nil {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, err)
	}

	result, err := s.exec(ctx, `
		UPDATE executions SET
			status = ?,
			completed_at = ?,
			output_data = ?,
			error_message = ?,
			completed_nodes = ?
		WHERE id = ?
	`,
		execution.Status,
		s.dialect.NullableTime(execution.CompletedAt),
		output,
		execution.ErrorMessage,
		execution.CompletedNodes,
		execution.ID,
	)
	if err != nil {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, err)
	}

	ok, err := updated(result)
	if err != nil {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, err)
	}

	if !ok {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (s *Store) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	row := s.queryRow(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return execution, nil
}

// ExecutionsByFlow returns the runs of a flow, most recent first.
func (s *Store) ExecutionsByFlow(ctx context.Context, flowID string) ([]*models.Execution, error) {
	rows, err := s.query(ctx, `SELECT `+executionColumns+` FROM executions WHERE flow_id = ? ORDER BY started_at DESC, id DESC`, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions of flow %s: %w", flowID, err)
	}
	defer s.closeRows(ctx, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (s *Store) CreateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error {
	input, output, err := encodeData(nodeExecution.InputData, nodeExecution.OutputData)
	if err != nil {
		return persistence.NewNodeExecutionError("CreateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO node_executions (id, execution_id, node_id, node_type, node_label, status,
			started_at, completed_at, execution_time_ms, input_data, output_data, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nodeExecution.ID,
		nodeExecution.ExecutionID,
		nodeExecution.NodeID,
		nodeExecution.NodeType,
		nodeExecution.NodeLabel,
		nodeExecution.Status,
		s.dialect.NullableTime(nodeExecution.StartedAt),
		s.dialect.NullableTime(nodeExecution.CompletedAt),
		nodeExecution.ExecutionTimeMs,
		input,
		output,
		nodeExecution.ErrorMessage,
		s.dialect.Time(s.now()),
	)
	if err != nil {
		return persistence.NewNodeExecutionError("CreateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	return nil
}

func (s *Store) UpdateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error {
	_, output, err := encodeData(nil, nodeExecution.OutputData)
	if err != nil {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	result, err := s.exec(ctx, `
		UPDATE node_executions SET
			status = ?,
			started_at = ?,
			completed_at = ?,
			execution_time_ms = ?,
			output_data = ?,
			error_message = ?
		WHERE id = ?
	`,
		nodeExecution.Status,
		s.dialect.NullableTime(nodeExecution.StartedAt),
		s.dialect.NullableTime(nodeExecution.CompletedAt),
		nodeExecution.ExecutionTimeMs,
		output,
		nodeExecution.ErrorMessage,
		nodeExecution.ID,
	)
	if err != nil {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	ok, err := updated(result)
	if err != nil {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, err)
	}

	if !ok {
		return persistence.NewNodeExecutionError("UpdateNodeExecution", nodeExecution.ExecutionID, nodeExecution.NodeID, persistence.ErrNodeExecutionNotFound)
	}

	return nil
}

// NodeExecutions returns the node records of a run in the order they were created.
func (s *Store) NodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error) {
	rows, err := s.query(ctx, `SELECT `+nodeExecutionColumns+` FROM node_executions WHERE execution_id = ? ORDER BY created_at, id`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query node executions of %s: %w", executionID, err)
	}
	defer s.closeRows(ctx, rows)

	records := make([]*models.NodeExecution, 0)

	for rows.Next() {
		record, err := scanNodeExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node execution: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node executions: %w", err)
	}

	return records, nil
}

func encodeData(input, output map[string]any) (any, any, error) {
	if input == nil {
		input = map[string]any{}
	}

	in, err := encodeJSON(input)
	if err != nil {
		return nil, nil, err
	}

	var out any
	if output != nil {
		if out, err = encodeJSON(output); err != nil {
			return nil, nil, err
		}
	}

	return in, out, nil
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution              models.Execution
		startedAt, completedAt nullTime
		input, output          []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.FlowID,
		&execution.Status,
		&execution.Mode,
		&execution.TriggeredBy,
		&startedAt,
		&completedAt,
		&input,
		&output,
		&execution.ErrorMessage,
		&execution.TotalNodes,
		&execution.CompletedNodes,
	)
	if err != nil {
		return nil, err
	}

	execution.StartedAt = startedAt.Time
	execution.CompletedAt = completedAt.ptr()

	if err := decodeJSON(input, &execution.InputData); err != nil {
		return nil, err
	}

	if err := decodeJSON(output, &execution.OutputData); err != nil {
		return nil, err
	}

	return &execution, nil
}

func scanNodeExecution(row scanner) (*models.NodeExecution, error) {
	var (
		record                 models.NodeExecution
		startedAt, completedAt nullTime
		executionTime          sql.NullInt64
		input, output          []byte
	)

	err := row.Scan(
		&record.ID,
		&record.ExecutionID,
		&record.NodeID,
		&record.NodeType,
		&record.NodeLabel,
		&record.Status,
		&startedAt,
		&completedAt,
		&executionTime,
		&input,
		&output,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	record.StartedAt = startedAt.ptr()
	record.CompletedAt = completedAt.ptr()

	if executionTime.Valid {
		ms := executionTime.Int64
		record.ExecutionTimeMs = &ms
	}

	if err := decodeJSON(input, &record.InputData); err != nil {
		return nil, err
	}

	if err := decodeJSON(output, &record.OutputData); err != nil {
		return nil, err
	}

	return &record, nil
}
