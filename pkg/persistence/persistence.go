// Package persistence provides the storage abstraction for flows, execution
// records and channel lookups.
package persistence

import (
	"context"

	"github.com/dukex/flowrun/pkg/models"
)

// FlowStore is the read side the executor needs.
type FlowStore interface {
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
}

// ExecutionStore records run and node state transitions.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	UpdateExecution(ctx context.Context, execution *models.Execution) error
	CreateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error
	UpdateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error
}

// ChannelStore resolves the messaging targets used by social nodes.
type ChannelStore interface {
	ConnectionByID(ctx context.Context, id string) (*models.ChannelConnection, error)
	ChannelByID(ctx context.Context, id string) (*models.Channel, error)
}

// Persistence is the full storage surface used by the API and workers.
type Persistence interface {
	FlowStore
	ExecutionStore
	ChannelStore

	Flows(ctx context.Context) ([]*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error

	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByFlow(ctx context.Context, flowID string) ([]*models.Execution, error)
	NodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error)

	SaveChannel(ctx context.Context, channel *models.Channel) error
	SaveConnection(ctx context.Context, connection *models.ChannelConnection) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
