package file

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

// Flows returns all flows, newest first. YAML flows without an id take the
// file name as id.
func (fp *Persistence) Flows(_ context.Context) ([]*models.Flow, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(fp.root, flowsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make([]*models.Flow, 0), nil
		}

		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	flows := make([]*models.Flow, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		id := strings.TrimSuffix(entry.Name(), ext)

		if seen[id] {
			continue
		}

		flow, err := fp.loadFlow(id)
		if err != nil {
			return nil, err
		}

		if flow != nil {
			seen[id] = true
			flows = append(flows, flow)
		}
	}

	slices.SortFunc(flows, func(a, b *models.Flow) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return flows, nil
}

func (fp *Persistence) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	flow, err := fp.loadFlow(id)
	if err != nil {
		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	if flow == nil {
		return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
	}

	return flow, nil
}

// loadFlow reads <id>.json, then <id>.yaml and <id>.yml. A missing flow is (nil, nil).
func (fp *Persistence) loadFlow(id string) (*models.Flow, error) {
	var flow models.Flow

	found, err := readJSON(fp.path(flowsDir, id), &flow)
	if err != nil {
		return nil, err
	}

	if !found {
		found, err = fp.loadYAMLFlow(id, &flow)
		if err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, nil
	}

	if flow.ID == "" {
		flow.ID = id
	}

	return &flow, nil
}

func (fp *Persistence) loadYAMLFlow(id string, flow *models.Flow) (bool, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(fp.root, flowsDir, id+ext)

		data, err := os.ReadFile(path) // #nosec G304 -- ids are validated before building paths
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return false, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, flow); err != nil {
			return true, fmt.Errorf("failed to decode %s: %w", path, err)
		}

		return true, nil
	}

	return false, nil
}

// SaveFlow writes the flow as JSON. Missing ids are generated and the
// timestamps are maintained by the store.
func (fp *Persistence) SaveFlow(_ context.Context, flow *models.Flow) error {
	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	if err := validateID(flow.ID); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	now := fp.now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := writeJSON(fp.path(flowsDir, flow.ID), flow); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

// DeleteFlow removes every stored representation of the flow.
func (fp *Persistence) DeleteFlow(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	removed := false

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		err := os.Remove(filepath.Join(fp.root, flowsDir, id+ext))
		if err == nil {
			removed = true

			continue
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return persistence.NewFlowError("DeleteFlow", id, err)
		}
	}

	if !removed {
		return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
	}

	return nil
}
