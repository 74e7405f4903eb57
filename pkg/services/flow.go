package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

// ErrFlowNotFound is returned when a flow is not found.
var ErrFlowNotFound = persistence.ErrFlowNotFound

// Flow manages stored flow definitions.
type Flow struct {
	persistence persistence.Persistence
	validator   *FlowValidator
}

func NewFlow(persistence persistence.Persistence) *Flow {
	return &Flow{
		persistence: persistence,
		validator:   NewFlowValidator(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (f *Flow) ListFlows(ctx context.Context) ([]*models.Flow, error) {
	flows, err := f.persistence.Flows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

func (f *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := f.persistence.FlowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, persistence.NewFlowError("FetchByID", id, ErrFlowNotFound)
	}

	return flow, nil
}

// Create validates and stores a new flow. The id is always generated.
func (f *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if err := f.validator.Validate(flow); err != nil {
		return nil, err
	}

	flow.ID = ""
	flow.CreatedAt = time.Time{}

	err := f.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	return flow, nil
}

// Update replaces the definition of an existing flow, keeping its id,
// owner and creation time.
func (f *Flow) Update(ctx context.Context, id string, flow *models.Flow) (*models.Flow, error) {
	if err := f.validator.Validate(flow); err != nil {
		return nil, err
	}

	existing, err := f.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	flow.ID = existing.ID
	flow.CreatedAt = existing.CreatedAt

	if flow.Owner == "" {
		flow.Owner = existing.Owner
	}

	err = f.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	return flow, nil
}

func (f *Flow) Delete(ctx context.Context, id string) error {
	return f.persistence.DeleteFlow(ctx, id)
}
