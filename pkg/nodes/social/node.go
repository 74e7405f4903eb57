// Package social provides the multi-channel action-post-social and
// action-send-message nodes. Delivery to the platforms is simulated; the
// nodes resolve every selected connection and report per-channel outcomes.
package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	TypePostSocial  = "action-post-social"
	TypeSendMessage = "action-send-message"

	StatusSuccess = "success"
	StatusError   = "error"

	simulationNote = "Simulation - Real API integration pending"
)

// SocialNode fans a post or message out to every connection in channel_ids.
type SocialNode struct {
	channels persistence.ChannelStore
	now      func() time.Time
}

func NewSocialNode(channels persistence.ChannelStore, now func() time.Time) *SocialNode {
	if now == nil {
		now = time.Now
	}

	return &SocialNode{channels: channels, now: now}
}

func Infos() []protocol.NodeInfo {
	return []protocol.NodeInfo{
		{Type: TypePostSocial, Name: "Post to Social", Description: "Publishes content on every selected channel", Category: protocol.CategoryAction},
		{Type: TypeSendMessage, Name: "Send Message", Description: "Sends a message through every selected channel", Category: protocol.CategoryAction},
	}
}

func (n *SocialNode) Execute(ctx context.Context, req protocol.Request) (models.NodeOutput, error) {
	channelIDs := nodes.List(req.Config, "channel_ids")
	if len(channelIDs) == 0 {
		return models.NodeOutput{"error": "No channels selected"}, nil
	}

	var (
		resultsKey string
		doneKey    string
		deliver    func(channelID string, platform string) map[string]any
	)

	switch req.NodeType {
	case TypePostSocial:
		resultsKey, doneKey = "posts", "posted"
		deliver = n.post
	case TypeSendMessage:
		resultsKey, doneKey = "messages", "sent"
		deliver = n.message
	default:
		return nil, fmt.Errorf("unsupported social node type %q", req.NodeType)
	}

	results := make([]any, 0, len(channelIDs))
	successful, failed := 0, 0

	for _, channelID := range channelIDs {
		result := n.fanOut(ctx, channelID, deliver)

		switch result["status"] {
		case StatusSuccess:
			successful++
		case StatusError:
			failed++
		}

		results = append(results, result)
	}

	return models.NodeOutput{
		doneKey:          true,
		resultsKey:       results,
		"total_channels": len(channelIDs),
		"successful":     successful,
		"failed":         failed,
	}, nil
}

func (n *SocialNode) fanOut(ctx context.Context, channelID string, deliver func(string, string) map[string]any) map[string]any {
	if n.channels == nil {
		return channelError(channelID, "Channel lookup not configured")
	}

	connection, err := n.channels.ConnectionByID(ctx, channelID)
	if err != nil {
		if persistence.IsChannelNotFound(err) {
			return channelError(channelID, "Channel connection not found")
		}

		return channelError(channelID, err.Error())
	}

	name := "Unknown"

	channel, err := n.channels.ChannelByID(ctx, connection.ChannelID)
	switch {
	case err == nil:
		name = channel.Name
	case !persistence.IsChannelNotFound(err):
		return channelError(channelID, err.Error())
	}

	result := deliver(channelID, strings.ToLower(name))
	result["channel_id"] = channelID
	result["channel_name"] = name
	result["platform"] = strings.ToLower(name)
	result["status"] = StatusSuccess
	result["note"] = simulationNote

	return result
}

func (n *SocialNode) post(channelID, platform string) map[string]any {
	postID := fmt.Sprintf("sim_%s_%d", channelID, n.now().Unix())

	return map[string]any{
		"post_id": postID,
		"url":     fmt.Sprintf("https://%s.com/post/%s", platform, postID),
	}
}

func (n *SocialNode) message(channelID, _ string) map[string]any {
	return map[string]any{
		"message_id": fmt.Sprintf("msg_%s_%d", channelID, n.now().Unix()),
	}
}

func channelError(channelID, message string) map[string]any {
	return map[string]any{
		"channel_id": channelID,
		"status":     StatusError,
		"error":      message,
	}
}
