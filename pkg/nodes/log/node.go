// Package log provides the action-log node, which writes a resolved message
// to the engine log.
package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const Type = "action-log"

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type LogNode struct{}

func NewLogNode() *LogNode {
	return &LogNode{}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        Type,
		Name:        "Log",
		Description: "Writes a message to the execution log",
		Category:    protocol.CategoryAction,
	}
}

func (n *LogNode) Execute(ctx context.Context, req protocol.Request) (models.NodeOutput, error) {
	message := nodes.String(req.Config, "message", "")
	levelName := strings.ToLower(nodes.String(req.Config, "level", "info"))

	level, ok := levels[levelName]
	if !ok {
		level, levelName = slog.LevelInfo, "info"
	}

	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Log(ctx, level, message,
		"execution_id", req.ExecutionID,
		"node_id", req.NodeID,
	)

	return models.NodeOutput{
		"logged":  true,
		"message": message,
		"level":   levelName,
	}, nil
}
