package response

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/protocol"
)

func TestResponseNode_Execute(t *testing.T) {
	testCases := []struct {
		name       string
		config     map[string]any
		wantStatus int
		wantBody   any
	}{
		{
			name:       "defaults",
			config:     map[string]any{},
			wantStatus: 200,
			wantBody:   map[string]any{},
		},
		{
			name:       "json body",
			config:     map[string]any{"status": "201", "body": `{"status": "success", "data": "Summary"}`},
			wantStatus: 201,
			wantBody:   map[string]any{"status": "success", "data": "Summary"},
		},
		{
			name:       "plain text body",
			config:     map[string]any{"status": 400.0, "body": "bad input"},
			wantStatus: 400,
			wantBody:   "bad input",
		},
		{
			name:       "object body",
			config:     map[string]any{"body": map[string]any{"ok": true}},
			wantStatus: 200,
			wantBody:   map[string]any{"ok": true},
		},
	}

	node := NewResponseNode()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := node.Execute(context.Background(), protocol.Request{NodeType: "response-data", Config: tc.config})
			require.NoError(t, err)

			assert.Equal(t, true, out["responded"])
			assert.Equal(t, tc.wantStatus, out["status"])
			assert.Equal(t, tc.wantBody, out["body"])
		})
	}
}
