package sqlite_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/persistence/sqlite"
)

func setupTestDB(t *testing.T) (*sqlite.Persistence, context.Context) {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := sqlite.NewPersistence(ctx, logger, filepath.Join(t.TempDir(), "flowrun.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close(ctx))
	})

	return store, ctx
}

func sampleFlow() *models.Flow {
	return &models.Flow{
		Name:        "Welcome",
		Description: "Greets new users",
		Owner:       "user-1",
		IsActive:    true,
		Data: models.FlowData{
			Nodes: []models.Node{
				{ID: "t", Type: "trigger-manual", Data: models.NodeData{Label: "Start"}},
				{ID: "log", Data: models.NodeData{Type: "action-log", Config: map[string]any{"message": "{{t.text}}"}}},
			},
			Edges: []models.Edge{{ID: "e1", Source: "t", Target: "log"}},
		},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	t.Parallel()

	store, ctx := setupTestDB(t)

	var version int
	require.NoError(t, store.DB().QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
	require.NoError(t, store.HealthCheck(ctx))
}

func TestPersistence_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	path := filepath.Join(t.TempDir(), "flowrun.db")

	first, err := sqlite.NewPersistence(ctx, logger, path)
	require.NoError(t, err)

	flow := sampleFlow()
	require.NoError(t, first.SaveFlow(ctx, flow))
	require.NoError(t, first.Close(ctx))

	second, err := sqlite.NewPersistence(ctx, logger, path)
	require.NoError(t, err)

	defer func() { _ = second.Close(ctx) }()

	got, err := second.FlowByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", got.Name)
}

func TestPersistence_Flows(t *testing.T) {
	t.Parallel()

	store, ctx := setupTestDB(t)

	flow := sampleFlow()
	require.NoError(t, store.SaveFlow(ctx, flow))
	require.NotEmpty(t, flow.ID)
	assert.False(t, flow.CreatedAt.IsZero())

	got, err := store.FlowByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.Name, got.Name)
	assert.Equal(t, flow.Owner, got.Owner)
	assert.True(t, got.IsActive)
	assert.Equal(t, flow.Data, got.Data)
	assert.WithinDuration(t, flow.CreatedAt, got.CreatedAt, time.Millisecond)

	flow.Name = "Renamed"
	require.NoError(t, store.SaveFlow(ctx, flow))

	flows, err := store.Flows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "Renamed", flows[0].Name)

	require.NoError(t, store.DeleteFlow(ctx, flow.ID))

	_, err = store.FlowByID(ctx, flow.ID)
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)
	require.ErrorIs(t, store.DeleteFlow(ctx, flow.ID), persistence.ErrFlowNotFound)
}

func TestPersistence_Executions(t *testing.T) {
	t.Parallel()

	store, ctx := setupTestDB(t)

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	execution := &models.Execution{
		ID:         "exec_1",
		FlowID:     "flow-1",
		Status:     models.ExecutionStatusRunning,
		Mode:       "manual",
		StartedAt:  started,
		InputData:  map[string]any{"t": map[string]any{"text": "hi"}},
		TotalNodes: 2,
	}
	require.NoError(t, store.CreateExecution(ctx, execution))

	ms := int64(5)
	nodeStarted := started.Add(time.Millisecond)
	record := &models.NodeExecution{
		ID:          "nexec_1",
		ExecutionID: execution.ID,
		NodeID:      "t",
		NodeType:    "trigger-manual",
		NodeLabel:   "Start",
		Status:      models.NodeExecutionStatusRunning,
		StartedAt:   &nodeStarted,
		InputData:   map[string]any{},
	}
	require.NoError(t, store.CreateNodeExecution(ctx, record))

	completed := nodeStarted.Add(5 * time.Millisecond)
	record.Status = models.NodeExecutionStatusCompleted
	record.CompletedAt = &completed
	record.ExecutionTimeMs = &ms
	record.OutputData = map[string]any{"text": "hi"}
	require.NoError(t, store.UpdateNodeExecution(ctx, record))

	skipped := &models.NodeExecution{
		ID:           "nexec_2",
		ExecutionID:  execution.ID,
		NodeID:       "log",
		NodeType:     "action-log",
		Status:       models.NodeExecutionStatusSkipped,
		ErrorMessage: "unreachable",
	}
	require.NoError(t, store.CreateNodeExecution(ctx, skipped))

	require.NoError(t, execution.Finish(models.ExecutionStatusPartial, completed, ""))
	execution.CompletedNodes = 1
	execution.OutputData = map[string]any{"t": map[string]any{"text": "hi"}}
	require.NoError(t, store.UpdateExecution(ctx, execution))

	got, err := store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPartial, got.Status)
	assert.Equal(t, "manual", got.Mode)
	assert.Equal(t, 2, got.TotalNodes)
	assert.Equal(t, 1, got.CompletedNodes)
	assert.Equal(t, execution.InputData, got.InputData)
	assert.Equal(t, execution.OutputData, got.OutputData)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))

	records, err := store.NodeExecutions(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t", records[0].NodeID)
	assert.Equal(t, models.NodeExecutionStatusCompleted, records[0].Status)
	require.NotNil(t, records[0].ExecutionTimeMs)
	assert.Equal(t, int64(5), *records[0].ExecutionTimeMs)
	assert.Equal(t, map[string]any{"text": "hi"}, records[0].OutputData)
	assert.Equal(t, models.NodeExecutionStatusSkipped, records[1].Status)
	assert.Nil(t, records[1].StartedAt)
	assert.Nil(t, records[1].ExecutionTimeMs)

	executions, err := store.ExecutionsByFlow(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, executions, 1)

	_, err = store.ExecutionByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	err = store.UpdateExecution(ctx, &models.Execution{ID: "missing"})
	require.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	err = store.UpdateNodeExecution(ctx, &models.NodeExecution{ID: "missing"})
	require.ErrorIs(t, err, persistence.ErrNodeExecutionNotFound)
}

func TestPersistence_Channels(t *testing.T) {
	t.Parallel()

	store, ctx := setupTestDB(t)

	channel := &models.Channel{Name: "Telegram", Type: "telegram", IsActive: true}
	require.NoError(t, store.SaveChannel(ctx, channel))

	connection := &models.ChannelConnection{
		ChannelID:   channel.ID,
		Owner:       "user-1",
		AccountName: "@flowrun",
		Credentials: map[string]any{"bot_token": "secret"},
		IsActive:    true,
	}
	require.NoError(t, store.SaveConnection(ctx, connection))

	gotChannel, err := store.ChannelByID(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "telegram", gotChannel.Type)

	gotConnection, err := store.ConnectionByID(ctx, connection.ID)
	require.NoError(t, err)
	assert.Equal(t, channel.ID, gotConnection.ChannelID)
	assert.Equal(t, "secret", gotConnection.Credentials["bot_token"])

	_, err = store.ChannelByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrChannelNotFound)

	_, err = store.ConnectionByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrConnectionNotFound)
}
