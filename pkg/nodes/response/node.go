// Package response provides the response-* nodes that shape the final
// result of a flow.
package response

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

type ResponseNode struct{}

func NewResponseNode() *ResponseNode {
	return &ResponseNode{}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        models.NodeTypePrefixResponse,
		Name:        "Response",
		Description: "Returns a status and body as the flow result",
		Category:    protocol.CategoryResponse,
		Prefix:      true,
	}
}

func (n *ResponseNode) Execute(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	return models.NodeOutput{
		"responded": true,
		"status":    nodes.Int(req.Config, "status", http.StatusOK),
		"body":      body(req.Config["body"]),
	}, nil
}

// body decodes JSON strings so resolved templates such as
// {"data": "{{ai.response}}"} come back structured. Other strings are kept.
func body(v any) any {
	switch b := v.(type) {
	case nil:
		return map[string]any{}
	case string:
		trimmed := strings.TrimSpace(b)
		if trimmed == "" {
			return b
		}

		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}

		return b
	default:
		return v
	}
}
