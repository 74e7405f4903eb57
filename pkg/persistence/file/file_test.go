package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
)

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.NoError(t, NewPersistence("file://"+t.TempDir()).HealthCheck(ctx))
	require.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(ctx))
}

func TestPersistence_FlowRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	older := &models.Flow{ID: "older", Name: "Older", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.SaveFlow(ctx, older))

	flow := &models.Flow{
		Name: "Greeting",
		Data: models.FlowData{
			Nodes: []models.Node{{ID: "t", Type: "trigger-manual"}},
		},
	}
	require.NoError(t, store.SaveFlow(ctx, flow))
	require.NotEmpty(t, flow.ID)

	got, err := store.FlowByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.Name, got.Name)
	assert.Equal(t, flow.Data, got.Data)

	flows, err := store.Flows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, flow.ID, flows[0].ID)
	assert.Equal(t, "older", flows[1].ID)

	require.NoError(t, store.DeleteFlow(ctx, flow.ID))

	_, err = store.FlowByID(ctx, flow.ID)
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)
	require.ErrorIs(t, store.DeleteFlow(ctx, flow.ID), persistence.ErrFlowNotFound)
}

func TestPersistence_YAMLFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, flowsDir), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, flowsDir, "welcome.yaml"), []byte(`
name: Welcome
data:
  nodes:
    - id: t
      type: trigger-manual
    - id: log
      data:
        type: action-log
        config:
          message: "hello {{t.name}}"
  edges:
    - source: t
      target: log
`), 0o600))

	store := NewPersistence(root)

	flow, err := store.FlowByID(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "welcome", flow.ID)
	assert.Equal(t, "Welcome", flow.Name)
	require.Len(t, flow.Data.Nodes, 2)
	assert.Equal(t, "action-log", flow.Data.Nodes[1].NodeType())
	assert.Equal(t, "hello {{t.name}}", flow.Data.Nodes[1].Config()["message"])
	assert.Equal(t, []models.Edge{{Source: "t", Target: "log"}}, flow.Data.Edges)

	flows, err := store.Flows(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestPersistence_RejectsUnsafeIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	_, err := store.FlowByID(ctx, "../secret")
	require.ErrorIs(t, err, errInvalidID)

	err = store.CreateExecution(ctx, &models.Execution{ID: "a/b"})
	require.ErrorIs(t, err, errInvalidID)
}

func TestPersistence_ExecutionRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &models.Execution{ID: "exec_1", FlowID: "f", Status: models.ExecutionStatusRunning, StartedAt: started}
	second := &models.Execution{ID: "exec_2", FlowID: "f", Status: models.ExecutionStatusRunning, StartedAt: started.Add(time.Minute)}
	other := &models.Execution{ID: "exec_3", FlowID: "g", Status: models.ExecutionStatusRunning, StartedAt: started}

	for _, e := range []*models.Execution{first, second, other} {
		require.NoError(t, store.CreateExecution(ctx, e))
	}

	require.NoError(t, first.Finish(models.ExecutionStatusCompleted, started.Add(time.Second), ""))
	require.NoError(t, store.UpdateExecution(ctx, first))

	got, err := store.ExecutionByID(ctx, "exec_1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, got.Status)

	runs, err := store.ExecutionsByFlow(ctx, "f")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "exec_2", runs[0].ID)

	err = store.UpdateExecution(ctx, &models.Execution{ID: "missing"})
	require.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	a := &models.NodeExecution{ID: "n1", ExecutionID: "exec_1", NodeID: "t", Status: models.NodeExecutionStatusRunning}
	b := &models.NodeExecution{ID: "n2", ExecutionID: "exec_1", NodeID: "x", Status: models.NodeExecutionStatusSkipped}

	require.NoError(t, store.CreateNodeExecution(ctx, a))
	require.NoError(t, store.CreateNodeExecution(ctx, b))

	a.Settle(models.NodeOutput{"ok": true}, started)
	require.NoError(t, store.UpdateNodeExecution(ctx, a))

	records, err := store.NodeExecutions(ctx, "exec_1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t", records[0].NodeID)
	assert.Equal(t, models.NodeExecutionStatusCompleted, records[0].Status)
	assert.Equal(t, "x", records[1].NodeID)

	err = store.UpdateNodeExecution(ctx, &models.NodeExecution{ID: "nope", ExecutionID: "exec_1"})
	require.ErrorIs(t, err, persistence.ErrNodeExecutionNotFound)

	empty, err := store.NodeExecutions(ctx, "exec_2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPersistence_Channels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	channel := &models.Channel{Name: "Zalo", Type: "zalo"}
	require.NoError(t, store.SaveChannel(ctx, channel))

	connection := &models.ChannelConnection{ChannelID: channel.ID, AccountName: "shop"}
	require.NoError(t, store.SaveConnection(ctx, connection))

	gotChannel, err := store.ChannelByID(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "zalo", gotChannel.Type)

	gotConnection, err := store.ConnectionByID(ctx, connection.ID)
	require.NoError(t, err)
	assert.Equal(t, "shop", gotConnection.AccountName)

	_, err = store.ChannelByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrChannelNotFound)

	_, err = store.ConnectionByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrConnectionNotFound)
}
