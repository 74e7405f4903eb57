package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

func named(name string) protocol.NodeHandler {
	return protocol.HandlerFunc(func(_ context.Context, _ protocol.Request) (models.NodeOutput, error) {
		return models.NodeOutput{"handler": name}, nil
	})
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.DiscardHandler))
}

func TestRegistry_Lookup(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(protocol.NodeInfo{Type: "ai-", Prefix: true}, named("ai-prefix"))
	reg.Register(protocol.NodeInfo{Type: "ai-open", Prefix: true}, named("ai-open-prefix"))
	reg.Register(protocol.NodeInfo{Type: "ai-openai"}, named("ai-openai"))

	testCases := []struct {
		nodeType string
		want     string
		found    bool
	}{
		{"ai-openai", "ai-openai", true},
		{"ai-openrouter", "ai-open-prefix", true},
		{"ai-gemini", "ai-prefix", true},
		{"weird-type", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.nodeType, func(t *testing.T) {
			out, err := reg.Execute(context.Background(), protocol.Request{NodeType: tc.nodeType})
			require.NoError(t, err)

			_, _, found := reg.Lookup(tc.nodeType)
			assert.Equal(t, tc.found, found)

			if tc.found {
				assert.Equal(t, tc.want, out["handler"])
			} else {
				assert.Equal(t, models.NodeOutput{"executed": true, "node_type": "weird-type"}, out)
			}
		})
	}
}

func TestRegistry_ExecuteRecoversPanics(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(protocol.NodeInfo{Type: "boom"}, protocol.HandlerFunc(func(context.Context, protocol.Request) (models.NodeOutput, error) {
		panic("kaboom")
	}))

	out, err := reg.Execute(context.Background(), protocol.Request{NodeID: "n1", NodeType: "boom"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Contains(t, err.Error(), "n1")
}

func TestRegistry_ExecuteWrapsErrors(t *testing.T) {
	sentinel := errors.New("upstream down")

	reg := newTestRegistry()
	reg.Register(protocol.NodeInfo{Type: "x"}, protocol.HandlerFunc(func(context.Context, protocol.Request) (models.NodeOutput, error) {
		return nil, sentinel
	}))

	_, err := reg.Execute(context.Background(), protocol.Request{NodeID: "n1", NodeType: "x"})
	require.ErrorIs(t, err, sentinel)
}

func TestRegistry_ExecuteNormalizesNilValues(t *testing.T) {
	var seen map[string]any

	reg := newTestRegistry()
	reg.Register(protocol.NodeInfo{Type: "x"}, protocol.HandlerFunc(func(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
		seen = req.Config

		return nil, nil
	}))

	out, err := reg.Execute(context.Background(), protocol.Request{NodeType: "x"})
	require.NoError(t, err)
	assert.NotNil(t, seen)
	assert.Equal(t, models.NodeOutput{}, out)
}

func TestRegistry_SetDefault(t *testing.T) {
	reg := newTestRegistry()
	reg.SetDefault(named("custom"))

	out, err := reg.Execute(context.Background(), protocol.Request{NodeType: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, "custom", out["handler"])
}

func TestRegistry_Types(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(protocol.NodeInfo{Type: "send-", Prefix: true}, named("a"))
	reg.Register(protocol.NodeInfo{Type: "action-http"}, named("b"))
	reg.Register(protocol.NodeInfo{Type: "action-http"}, named("c"))

	types := reg.Types()
	require.Len(t, types, 2)
	assert.Equal(t, "action-http", types[0].Type)
	assert.Equal(t, "send-", types[1].Type)
}

func TestRegistry_LoadPluginsMissingDir(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.LoadPlugins(t.TempDir())
	require.Error(t, err)
}

func TestRegistry_HealthCheck(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.New(slog.DiscardHandler))

	_, ok := r.HealthCheck()
	assert.False(t, ok)

	r.Register(protocol.NodeInfo{Type: "action-log"}, protocol.HandlerFunc(func(context.Context, protocol.Request) (models.NodeOutput, error) {
		return models.NodeOutput{}, nil
	}))

	message, ok := r.HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "Registry is healthy", message)
}
