// Package code provides the action-code node. Workflow authors supply an
// expr-lang expression instead of host code: the language has no I/O, no
// access to the process, and programs are bounded in size.
package code

import (
	"context"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	Type = "action-code"

	// MaxProgramNodes caps the size of a compiled program.
	MaxProgramNodes = 10000
)

// CodeNode evaluates the "code" expression with the prior outputs bound to
// "input" and returns its value as "result".
type CodeNode struct{}

func NewCodeNode() *CodeNode {
	return &CodeNode{}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        Type,
		Name:        "Code",
		Description: "Evaluates an expression over the outputs of previous nodes",
		Category:    protocol.CategoryAction,
	}
}

func (n *CodeNode) Execute(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	source := nodes.String(req.Config, "code", "")
	if strings.TrimSpace(source) == "" {
		return models.NodeOutput{"executed": false, "reason": "No code provided"}, nil
	}

	input := req.PriorOutputs
	if input == nil {
		input = map[string]any{}
	}

	env := map[string]any{"input": input}

	program, err := expr.Compile(source, expr.Env(env), expr.MaxNodes(MaxProgramNodes))
	if err != nil {
		return models.ErrorOutput(err), nil
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return models.ErrorOutput(err), nil
	}

	return models.NodeOutput{
		"executed": true,
		"result":   result,
	}, nil
}
