package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/protocol"
)

func TestLogNode_Execute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	out, err := NewLogNode().Execute(context.Background(), protocol.Request{
		ExecutionID: "exec_1",
		NodeID:      "log_1",
		Config:      map[string]any{"message": "order 42 shipped", "level": "WARN"},
		Logger:      logger,
	})
	require.NoError(t, err)

	assert.Equal(t, true, out["logged"])
	assert.Equal(t, "warn", out["level"])
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="order 42 shipped"`)
	assert.Contains(t, buf.String(), "node_id=log_1")
}

func TestLogNode_UnknownLevelFallsBackToInfo(t *testing.T) {
	out, err := NewLogNode().Execute(context.Background(), protocol.Request{
		Config: map[string]any{"message": "x", "level": "loud"},
		Logger: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	assert.Equal(t, "info", out["level"])
}
