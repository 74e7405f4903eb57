package httprequest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/protocol"
)

func execute(t *testing.T, node *HTTPRequestNode, config map[string]any) map[string]any {
	t.Helper()

	out, err := node.Execute(context.Background(), protocol.Request{NodeType: Type, Config: config})
	require.NoError(t, err)

	return out
}

func TestHTTPRequestNode_JSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok","count":2}`))
	}))
	defer server.Close()

	out := execute(t, NewHTTPRequestNode(server.Client()), map[string]any{
		"url":     server.URL,
		"headers": `{"X-Token": "secret"}`,
	})

	assert.Equal(t, true, out["executed"])
	assert.Equal(t, http.StatusOK, out["status"])
	assert.Equal(t, map[string]any{"message": "ok", "count": float64(2)}, out["data"])
}

func TestHTTPRequestNode_TextResponseAndErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not here"))
	}))
	defer server.Close()

	out := execute(t, NewHTTPRequestNode(server.Client()), map[string]any{"url": server.URL})

	assert.Equal(t, http.StatusNotFound, out["status"])
	assert.Equal(t, "not here", out["data"])
	assert.NotContains(t, out, "error")
}

func TestHTTPRequestNode_BodyOnlyForWriteMethods(t *testing.T) {
	var received []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		received = append(received, r.Method+":"+string(raw))

		if len(raw) > 0 {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
	}))
	defer server.Close()

	node := NewHTTPRequestNode(server.Client())
	body := `{"name":"flow"}`

	execute(t, node, map[string]any{"url": server.URL, "method": "post", "body": body})
	execute(t, node, map[string]any{"url": server.URL, "method": "GET", "body": body})
	execute(t, node, map[string]any{"url": server.URL, "method": "PUT", "body": "{not json"})

	require.Len(t, received, 3)
	assert.Equal(t, `POST:{"name":"flow"}`, received[0])
	assert.Equal(t, "GET:", received[1])
	assert.Equal(t, "PUT:", received[2])
}

func TestHTTPRequestNode_MapBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	out := execute(t, NewHTTPRequestNode(server.Client()), map[string]any{
		"url":    server.URL,
		"method": "PATCH",
		"body":   map[string]any{"a": "b"},
	})

	assert.Equal(t, map[string]any{"a": "b"}, out["data"])
}

func TestHTTPRequestNode_NoURL(t *testing.T) {
	out := execute(t, NewHTTPRequestNode(nil), map[string]any{"method": "delete"})

	assert.Equal(t, true, out["executed"])
	assert.Equal(t, "DELETE", out["method"])
	assert.Equal(t, "No URL provided", out["note"])
}

func TestHTTPRequestNode_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	out := execute(t, NewHTTPRequestNode(nil), map[string]any{"url": url})

	assert.Contains(t, out["error"], "request failed")
}

func TestHTTPRequestNode_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	node := NewHTTPRequestNode(server.Client())
	node.timeout = 50 * time.Millisecond

	out := execute(t, node, map[string]any{"url": server.URL})

	assert.Contains(t, out, "error")
}

func TestHTTPRequestNode_ResponseLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	node := NewHTTPRequestNode(server.Client())
	node.maxBytes = 64

	out := execute(t, node, map[string]any{"url": server.URL})
	assert.Equal(t, strings.Repeat("x", 64), out["data"])

	node.maxBytes = 63

	out = execute(t, node, map[string]any{"url": server.URL})
	assert.Contains(t, out["error"], ErrResponseTooLarge.Error())
}

func TestParseConfig_MalformedHeaders(t *testing.T) {
	cfg := ParseConfig(map[string]any{"url": " http://x ", "headers": "{oops"})

	assert.Equal(t, "http://x", cfg.URL)
	assert.Equal(t, http.MethodGet, cfg.Method)
	assert.Empty(t, cfg.Headers)
	assert.Nil(t, cfg.Body)
}
