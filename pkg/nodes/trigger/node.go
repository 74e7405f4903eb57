// Package trigger provides the pass-through node used by every trigger-* type.
package trigger

import (
	"context"
	"maps"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	TypeManual   = "trigger-manual"
	TypeSchedule = "trigger-schedule"
	TypeWebhook  = "trigger-webhook"
)

// TriggerNode echoes its (input-merged) configuration so downstream nodes can
// reference trigger data as {{trigger.field}}.
type TriggerNode struct {
	now func() time.Time
}

func NewTriggerNode(now func() time.Time) *TriggerNode {
	if now == nil {
		now = time.Now
	}

	return &TriggerNode{now: now}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        models.NodeTypePrefixTrigger,
		Name:        "Trigger",
		Description: "Starts a flow and exposes the run input to downstream nodes",
		Category:    protocol.CategoryTrigger,
		Prefix:      true,
	}
}

func (n *TriggerNode) Execute(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	output := models.NodeOutput{
		"triggered": true,
		"timestamp": n.now().UTC().Format(time.RFC3339Nano),
	}

	maps.Copy(output, req.Config)

	return output, nil
}
