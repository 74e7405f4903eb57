package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/models"
)

// flowSchema describes the editor payload accepted for a flow.
var flowSchema = gojsonschema.NewGoLoader(map[string]any{
	"type":     "object",
	"required": []any{"name", "data"},
	"properties": map[string]any{
		"name": map[string]any{"type": "string", "minLength": 1},
		"data": map[string]any{
			"type":     "object",
			"properties": map[string]any{
				"nodes": map[string]any{
					"type": []any{"array", "null"},
					"items": map[string]any{
						"type":     "object",
						"required": []any{"id"},
						"properties": map[string]any{
							"id":   map[string]any{"type": "string", "minLength": 1},
							"type": map[string]any{"type": "string"},
							"data": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"type":   map[string]any{"type": "string"},
									"label":  map[string]any{"type": "string"},
									"config": map[string]any{"type": "object"},
								},
							},
						},
					},
				},
				"edges": map[string]any{
					"type": []any{"array", "null"},
					"items": map[string]any{
						"type":     "object",
						"required": []any{"source", "target"},
						"properties": map[string]any{
							"source": map[string]any{"type": "string", "minLength": 1},
							"target": map[string]any{"type": "string", "minLength": 1},
						},
					},
				},
			},
		},
	},
})

// FlowValidator checks a flow before it is stored: struct rules, JSON shape
// and graph integrity, in that order.
type FlowValidator struct {
	validate *validator.Validate
}

func NewFlowValidator() *FlowValidator {
	return &FlowValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *FlowValidator) Validate(flow *models.Flow) error {
	if flow == nil {
		return ErrFlowNil
	}

	if strings.TrimSpace(flow.Name) == "" {
		return ErrFlowNameRequired
	}

	if err := v.validate.Struct(flow); err != nil {
		return NewValidationError("Validate", "invalid_flow", err.Error(), ErrInvalidRequest)
	}

	if err := validateSchema(flow); err != nil {
		return err
	}

	if err := graph.FromFlow(flow).Validate(); err != nil {
		return NewValidationError("Validate", "invalid_graph", err.Error(), errors.Join(ErrInvalidFlowGraph, err))
	}

	return nil
}

func validateSchema(flow *models.Flow) error {
	result, err := gojsonschema.Validate(flowSchema, gojsonschema.NewGoLoader(flow))
	if err != nil {
		return fmt.Errorf("failed to validate flow schema: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return NewValidationError("Validate", "invalid_schema", strings.Join(messages, "; "), ErrInvalidFlowSchema)
	}

	return nil
}
