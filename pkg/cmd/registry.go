// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowrun/pkg/nodes/ai"
	"github.com/dukex/flowrun/pkg/nodes/code"
	"github.com/dukex/flowrun/pkg/nodes/conditional"
	"github.com/dukex/flowrun/pkg/nodes/httprequest"
	lognode "github.com/dukex/flowrun/pkg/nodes/log"
	"github.com/dukex/flowrun/pkg/nodes/response"
	"github.com/dukex/flowrun/pkg/nodes/simulated"
	"github.com/dukex/flowrun/pkg/nodes/social"
	"github.com/dukex/flowrun/pkg/nodes/transform"
	"github.com/dukex/flowrun/pkg/nodes/trigger"
	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/registry"
)

// NodeDeps carries the collaborators built-in nodes need.
type NodeDeps struct {
	Channels     persistence.ChannelStore
	OpenAIAPIKey string
	GeminiAPIKey string
	HTTPClient   *http.Client
}

func registerNativeNodes(reg *registry.Registry, log *slog.Logger, deps NodeDeps) {
	reg.Register(trigger.Info(), trigger.NewTriggerNode(time.Now))
	reg.Register(httprequest.Info(), httprequest.NewHTTPRequestNode(deps.HTTPClient))
	reg.Register(code.Info(), code.NewCodeNode())
	reg.Register(conditional.Info(), conditional.NewConditionalNode())
	reg.Register(transform.Info(), transform.NewTransformNode())
	reg.Register(response.Info(), response.NewResponseNode())
	reg.Register(lognode.Info(), lognode.NewLogNode())

	aiNode := ai.NewAINode(
		ai.NewBreaker(&ai.OpenAI{APIKey: deps.OpenAIAPIKey, Client: deps.HTTPClient}, log),
		ai.NewBreaker(&ai.Gemini{APIKey: deps.GeminiAPIKey, Client: deps.HTTPClient}, log),
	)
	for _, info := range ai.Infos() {
		reg.Register(info, aiNode)
	}

	socialNode := social.NewSocialNode(deps.Channels, time.Now)
	for _, info := range social.Infos() {
		reg.Register(info, socialNode)
	}

	simulatedNode := simulated.NewSimulatedNode(time.Now)
	for _, info := range simulated.Infos() {
		reg.Register(info, simulatedNode)
	}
}

// NewRegistry builds a registry with every built-in node and, when
// pluginsPath is set, the node plugins found below it.
func NewRegistry(log *slog.Logger, pluginsPath string, deps NodeDeps) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeNodes(reg, log, deps)

	if pluginsPath != "" {
		if _, err := reg.LoadPlugins(pluginsPath); err != nil {
			panic(err)
		}
	}

	return reg
}
