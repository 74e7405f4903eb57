package triggers_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/triggers"
	"github.com/dukex/flowrun/pkg/workflow"
)

type failingRunner struct {
	err error
}

func (r failingRunner) ExecuteAs(context.Context, string, map[string]any, string) (*models.Execution, error) {
	if r.err != nil {
		return nil, r.err
	}

	return &models.Execution{ID: "exec_1", Status: models.ExecutionStatusPartial}, nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	storageErr := &workflow.StorageError{Op: "create execution", Err: errors.New("disk full")}

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "finished run", err: nil},
		{name: "missing flow", err: persistence.NewFlowError("FlowByID", "f", persistence.ErrFlowNotFound)},
		{name: "cancelled run", err: fmt.Errorf("%w: %w", workflow.ErrCancelled, context.Canceled)},
		{name: "storage failure", err: storageErr, wantErr: storageErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := triggers.Run(context.Background(), slog.New(slog.DiscardHandler), failingRunner{err: tt.err}, "f", nil, "")
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
