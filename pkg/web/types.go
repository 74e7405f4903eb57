// Package web provides the HTTP API for managing and running flows.
package web

import "github.com/dukex/flowrun/pkg/models"

// ActorHeader carries the id of the user starting a run.
const ActorHeader = "X-User-ID"

// SaveFlowRequest is the body of flow create and update calls.
type SaveFlowRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=255"`
	Description string          `json:"description" validate:"max=2000"`
	Owner       string          `json:"owner"`
	IsActive    bool            `json:"is_active"`
	Data        models.FlowData `json:"data"`
}

func (r SaveFlowRequest) Flow() *models.Flow {
	return &models.Flow{
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		IsActive:    r.IsActive,
		Data:        r.Data,
	}
}

// ExecuteFlowRequest starts a run. InputData is keyed by node id; trigger
// nodes also receive the whole object.
type ExecuteFlowRequest struct {
	InputData map[string]any `json:"input_data"`
}

// TriggerFlowResponse acknowledges an asynchronous run request.
type TriggerFlowResponse struct {
	EventID string `json:"event_id"`
	FlowID  string `json:"flow_id"`
}
