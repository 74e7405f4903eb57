// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/flowrun/pkg/models"
)

// Request is everything a node handler receives for one invocation.
type Request struct {
	ExecutionID string
	NodeID      string
	NodeType    string

	// Config is the node configuration after input merging and variable resolution.
	Config map[string]any

	// PriorOutputs maps node id to the output of every node that already ran.
	PriorOutputs map[string]any

	Logger *slog.Logger
}

// NodeHandler executes the behaviour of a node type. Expected failures are
// reported as an output carrying an "error" key; a returned error is treated
// the same way by the executor and is reserved for unexpected conditions.
type NodeHandler interface {
	Execute(ctx context.Context, req Request) (models.NodeOutput, error)
}

// HandlerFunc adapts a plain function to NodeHandler.
type HandlerFunc func(ctx context.Context, req Request) (models.NodeOutput, error)

func (f HandlerFunc) Execute(ctx context.Context, req Request) (models.NodeOutput, error) {
	return f(ctx, req)
}

// Category groups node types in catalogs.
type Category string

const (
	CategoryTrigger  Category = "trigger"
	CategoryAI       Category = "ai"
	CategoryAction   Category = "action"
	CategoryLogic    Category = "logic"
	CategoryMessage  Category = "message"
	CategoryMedia    Category = "media"
	CategoryResponse Category = "response"
)

// NodeInfo describes a registered node type.
type NodeInfo struct {
	// Type is the exact node type, or the type prefix for prefix registrations.
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Prefix      bool     `json:"prefix"`
}

// Plugin is the symbol a node plugin (.so) must export as "Node".
type Plugin interface {
	NodeHandler
	Info() NodeInfo
}
