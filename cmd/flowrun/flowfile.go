package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dukex/flowrun/pkg/models"
)

// loadFlowFile reads a flow definition from a JSON or YAML file. A flow
// without an id is named after the file.
func loadFlowFile(path string) (*models.Flow, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- the path is given by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	var flow models.Flow

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &flow)
	default:
		err = json.Unmarshal(data, &flow)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode flow file %s: %w", path, err)
	}

	if flow.ID == "" {
		flow.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if flow.Name == "" {
		flow.Name = flow.ID
	}

	return &flow, nil
}

// parseInput decodes the --input flag, a JSON object keyed by node id.
func parseInput(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}

	return input, nil
}
