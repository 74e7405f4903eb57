// Package models defines the core domain models for flow-based automation.
package models

import (
	"strings"
	"time"
)

// Built-in node type prefixes.
const (
	NodeTypePrefixTrigger  = "trigger-"
	NodeTypePrefixAI       = "ai-"
	NodeTypePrefixAction   = "action-"
	NodeTypePrefixLogic    = "logic-"
	NodeTypePrefixSend     = "send-"
	NodeTypePrefixMedia    = "media-"
	NodeTypePrefixResponse = "response-"
)

// Flow is a stored automation graph owned by a user.
type Flow struct {
	ID          string    `json:"id"          yaml:"id"`
	Name        string    `json:"name"        yaml:"name"        validate:"required,min=1"`
	Description string    `json:"description" yaml:"description"`
	Data        FlowData  `json:"data"        yaml:"data"`
	Owner       string    `json:"owner"       yaml:"owner"`
	IsActive    bool      `json:"is_active"   yaml:"is_active"`
	CreatedAt   time.Time `json:"created_at"  yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  yaml:"updated_at"`
}

// FlowData is the editor payload holding the graph.
type FlowData struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node is a single step of a flow as saved by the editor.
type Node struct {
	ID       string    `json:"id"                 yaml:"id"                 validate:"required"`
	Type     string    `json:"type,omitempty"     yaml:"type,omitempty"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Data     NodeData  `json:"data"               yaml:"data"`
}

// NodeData carries the typed part of a node.
type NodeData struct {
	Type   string         `json:"type,omitempty"   yaml:"type,omitempty"`
	Label  string         `json:"label,omitempty"  yaml:"label,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Edge is a directed dependency from Source to Target.
type Edge struct {
	ID           string `json:"id,omitempty"           yaml:"id,omitempty"`
	Source       string `json:"source"                 yaml:"source"       validate:"required"`
	Target       string `json:"target"                 yaml:"target"       validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// NodeType returns the behaviour type of the node. The editor stores it under
// data.type and uses the top-level type for rendering, so data.type wins.
func (n Node) NodeType() string {
	if n.Data.Type != "" {
		return n.Data.Type
	}

	return n.Type
}

// Label returns the display name, falling back to the type and then the id.
func (n Node) Label() string {
	if n.Data.Label != "" {
		return n.Data.Label
	}

	if t := n.NodeType(); t != "" {
		return t
	}

	return n.ID
}

// Config returns the node's base configuration, never nil.
func (n Node) Config() map[string]any {
	if n.Data.Config == nil {
		return map[string]any{}
	}

	return n.Data.Config
}

// IsTrigger reports whether the node type belongs to the trigger family.
func (n Node) IsTrigger() bool {
	return strings.HasPrefix(n.NodeType(), NodeTypePrefixTrigger)
}
