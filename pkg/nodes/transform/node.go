// Package transform provides the logic-transform node, which reshapes data
// through field mappings. Mapping values are resolved before the node runs.
package transform

import (
	"context"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const Type = "logic-transform"

type TransformNode struct{}

func NewTransformNode() *TransformNode {
	return &TransformNode{}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        Type,
		Name:        "Transform Data",
		Description: "Maps upstream values onto new output fields",
		Category:    protocol.CategoryLogic,
	}
}

// Mappings accepts an object, a JSON object string, or the editor's
// key-value list form [{"key": ..., "value": ...}].
func Mappings(config map[string]any) (map[string]any, error) {
	if m, ok := nodes.Object(config, "mappings"); ok {
		return m, nil
	}

	switch v := config["mappings"].(type) {
	case nil:
		return nil, fmt.Errorf("no mappings provided")
	case []any:
		out := make(map[string]any, len(v))

		for i, item := range v {
			pair, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("mapping %d is not a key-value pair", i)
			}

			key := nodes.String(pair, "key", "")
			if key == "" {
				return nil, fmt.Errorf("mapping %d has no key", i)
			}

			out[key] = pair["value"]
		}

		return out, nil
	default:
		return nil, fmt.Errorf("mappings must be an object, got %T", v)
	}
}

func (n *TransformNode) Execute(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	mappings, err := Mappings(req.Config)
	if err != nil {
		return models.ErrorOutput(err), nil
	}

	return models.NodeOutput{
		"transformed": true,
		"data":        mappings,
	}, nil
}
