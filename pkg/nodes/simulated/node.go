// Package simulated provides acknowledgement-only nodes for integrations that
// are not wired to a real platform: send-*, media-* and the upload actions.
package simulated

import (
	"context"
	"strings"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	TypeUploadImage = "action-upload-image"
	TypeUploadVideo = "action-upload-video"
)

type SimulatedNode struct {
	now func() time.Time
}

func NewSimulatedNode(now func() time.Time) *SimulatedNode {
	if now == nil {
		now = time.Now
	}

	return &SimulatedNode{now: now}
}

func Infos() []protocol.NodeInfo {
	return []protocol.NodeInfo{
		{Type: models.NodeTypePrefixSend, Name: "Send", Description: "Acknowledges a message for a platform (simulated)", Category: protocol.CategoryMessage, Prefix: true},
		{Type: models.NodeTypePrefixMedia, Name: "Media", Description: "Acknowledges a media item (simulated)", Category: protocol.CategoryMedia, Prefix: true},
		{Type: TypeUploadImage, Name: "Upload Image", Description: "Acknowledges image uploads (simulated)", Category: protocol.CategoryAction},
		{Type: TypeUploadVideo, Name: "Upload Video", Description: "Acknowledges video uploads (simulated)", Category: protocol.CategoryAction},
	}
}

func (n *SimulatedNode) Execute(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	switch {
	case req.NodeType == TypeUploadImage:
		return upload(req.Config, "images", "wataomi/images"), nil
	case req.NodeType == TypeUploadVideo:
		return upload(req.Config, "videos", "wataomi/videos"), nil
	case strings.HasPrefix(req.NodeType, models.NodeTypePrefixSend):
		return models.NodeOutput{
			"sent":      true,
			"platform":  strings.TrimPrefix(req.NodeType, models.NodeTypePrefixSend),
			"message":   nodes.String(req.Config, "message", ""),
			"timestamp": n.now().UTC().Format(time.RFC3339Nano),
			"note":      "Message sending simulation (Integration pending)",
		}, nil
	default:
		return models.NodeOutput{
			"processed": true,
			"media_url": nodes.String(req.Config, "media_url", ""),
			"type":      req.NodeType,
		}, nil
	}
}

func upload(config map[string]any, key, defaultFolder string) models.NodeOutput {
	files := nodes.List(config, key)

	return models.NodeOutput{
		"uploaded": true,
		"files":    files,
		"count":    len(files),
		"folder":   nodes.String(config, "folder", defaultFolder),
		"note":     "Upload simulation (Integration pending)",
	}
}
