package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

const flowColumns = `
	id
  , name
  , description
  , data
  , owner
  , is_active
  , created_at
  , updated_at
`

// Flows returns all flows, newest first.
func (s *Store) Flows(ctx context.Context) ([]*models.Flow, error) {
	rows, err := s.query(ctx, `SELECT `+flowColumns+` FROM flows ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer s.closeRows(ctx, rows)

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

func (s *Store) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	row := s.queryRow(ctx, `SELECT `+flowColumns+` FROM flows WHERE id = ?`, id)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	return flow, nil
}

// SaveFlow inserts or replaces a flow. Missing ids are generated and the
// timestamps are maintained by the store.
func (s *Store) SaveFlow(ctx context.Context, flow *models.Flow) error {
	now := s.now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	data, err := encodeJSON(flow.Data)
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO flows (id, name, description, data, owner, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			data = excluded.data,
			owner = excluded.owner,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`,
		flow.ID,
		flow.Name,
		flow.Description,
		data,
		flow.Owner,
		flow.IsActive,
		s.dialect.Time(flow.CreatedAt),
		s.dialect.Time(flow.UpdatedAt),
	)
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	result, err := s.exec(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	ok, err := updated(result)
	if err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	if !ok {
		return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
	}

	return nil
}

func scanFlow(row scanner) (*models.Flow, error) {
	var (
		flow                 models.Flow
		data                 []byte
		createdAt, updatedAt nullTime
	)

	err := row.Scan(
		&flow.ID,
		&flow.Name,
		&flow.Description,
		&data,
		&flow.Owner,
		&flow.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(data, &flow.Data); err != nil {
		return nil, err
	}

	flow.CreatedAt = createdAt.Time
	flow.UpdatedAt = updatedAt.Time

	return &flow, nil
}
