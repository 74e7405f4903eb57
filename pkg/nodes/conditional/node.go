// Package conditional provides the logic-condition node. The result is data
// for downstream nodes; the executor does not prune branches on it.
package conditional

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const Type = "logic-condition"

// Operator is a comparison supported by the condition node.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIsEmpty     Operator = "is_empty"
	OperatorIsNotEmpty  Operator = "is_not_empty"
)

type ConditionalNode struct{}

func NewConditionalNode() *ConditionalNode {
	return &ConditionalNode{}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        Type,
		Name:        "Condition",
		Description: "Compares two values and reports the outcome",
		Category:    protocol.CategoryLogic,
	}
}

// OperatorOf reads the operator from "operator", falling back to the
// editor's "condition_type" and then to equals.
func OperatorOf(config map[string]any) Operator {
	if op := nodes.String(config, "operator", ""); op != "" {
		return Operator(op)
	}

	return Operator(nodes.String(config, "condition_type", string(OperatorEquals)))
}

func (n *ConditionalNode) Execute(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	op := OperatorOf(req.Config)
	left, right := req.Config["value1"], req.Config["value2"]

	result, err := Evaluate(op, left, right)
	if err != nil {
		return models.ErrorOutput(err), nil
	}

	return models.NodeOutput{
		"evaluated": true,
		"operator":  string(op),
		"result":    result,
		"value1":    left,
		"value2":    right,
	}, nil
}

// Evaluate applies op to the two operands. Ordering and equality are numeric
// when both sides parse as numbers and textual otherwise.
func Evaluate(op Operator, left, right any) (bool, error) {
	switch op {
	case OperatorEquals:
		return compare(left, right) == 0, nil
	case OperatorNotEquals:
		return compare(left, right) != 0, nil
	case OperatorGreaterThan:
		return compare(left, right) > 0, nil
	case OperatorLessThan:
		return compare(left, right) < 0, nil
	case OperatorContains:
		return contains(left, right), nil
	case OperatorIsEmpty:
		return isEmpty(left), nil
	case OperatorIsNotEmpty:
		return !isEmpty(left), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

func compare(left, right any) int {
	l, lok := nodes.ToFloat(left)
	r, rok := nodes.ToFloat(right)

	if lok && rok {
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(text(left), text(right))
}

func contains(haystack, needle any) bool {
	if list, ok := haystack.([]any); ok {
		for _, item := range list {
			if compare(item, needle) == 0 {
				return true
			}
		}

		return false
	}

	return strings.Contains(text(haystack), text(needle))
}

func isEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	default:
		return false
	}
}

func text(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}
