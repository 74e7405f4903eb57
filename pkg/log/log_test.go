package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandler_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "warn", "json"))
	logger.Info("hidden")
	logger.Warn("shown", "module", "workflow")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "workflow", line["module"])
}

func TestNewHandler_TintWithoutTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	slog.New(NewHandler(&buf, "info", "")).Info("run finished", "status", "completed")

	assert.Contains(t, buf.String(), "run finished")
	assert.Contains(t, buf.String(), "status=completed")
	assert.NotContains(t, buf.String(), "\x1b[")
}
