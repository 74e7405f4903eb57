// Package httprequest provides the action-http node.
package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	Type = "action-http"

	DefaultTimeout = 30 * time.Second

	// MaxResponseBytes caps the response body kept in the node output.
	MaxResponseBytes = 10 << 20
)

var ErrResponseTooLarge = errors.New("response body too large")

// HTTPRequestNode performs one outbound HTTP call per invocation.
type HTTPRequestNode struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// HTTPRequestConfig is the parsed node configuration.
type HTTPRequestConfig struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    any
}

func NewHTTPRequestNode(client *http.Client) *HTTPRequestNode {
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPRequestNode{client: client, timeout: DefaultTimeout, maxBytes: MaxResponseBytes}
}

func Info() protocol.NodeInfo {
	return protocol.NodeInfo{
		Type:        Type,
		Name:        "HTTP Request",
		Description: "Calls an HTTP endpoint and returns its status and decoded body",
		Category:    protocol.CategoryAction,
	}
}

// ParseConfig reads url, method, headers and body. Headers and body may be
// JSON strings; malformed JSON is ignored.
func ParseConfig(config map[string]any) HTTPRequestConfig {
	cfg := HTTPRequestConfig{
		URL:     strings.TrimSpace(nodes.String(config, "url", "")),
		Method:  strings.ToUpper(nodes.String(config, "method", http.MethodGet)),
		Headers: make(map[string]string),
	}

	if headers, ok := nodes.Object(config, "headers"); ok {
		for k, v := range headers {
			cfg.Headers[k] = fmt.Sprint(v)
		}
	}

	switch body := config["body"].(type) {
	case string:
		if strings.TrimSpace(body) != "" {
			var decoded any
			if err := json.Unmarshal([]byte(body), &decoded); err == nil {
				cfg.Body = decoded
			}
		}
	case map[string]any, []any:
		cfg.Body = body
	}

	return cfg
}

func (n *HTTPRequestNode) Execute(ctx context.Context, req protocol.Request) (models.NodeOutput, error) {
	cfg := ParseConfig(req.Config)

	if cfg.URL == "" {
		return models.NodeOutput{
			"executed": true,
			"url":      nil,
			"method":   cfg.Method,
			"note":     "No URL provided",
		}, nil
	}

	status, data, err := n.performRequest(ctx, cfg)
	if err != nil {
		return models.ErrorOutput(err), nil
	}

	return models.NodeOutput{
		"executed": true,
		"status":   status,
		"data":     data,
	}, nil
}

func sendsBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func (n *HTTPRequestNode) performRequest(ctx context.Context, cfg HTTPRequestConfig) (int, any, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var body io.Reader

	if cfg.Body != nil && sendsBody(cfg.Method) {
		encoded, err := json.Marshal(cfg.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode body: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, n.maxBytes+1))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(raw)) > n.maxBytes {
		return 0, nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, n.maxBytes)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return resp.StatusCode, decoded, nil
	}

	return resp.StatusCode, string(raw), nil
}
