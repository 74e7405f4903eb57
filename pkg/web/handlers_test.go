package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/eventbus"
	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
	lognode "github.com/dukex/flowrun/pkg/nodes/log"
	"github.com/dukex/flowrun/pkg/nodes/trigger"
	"github.com/dukex/flowrun/pkg/persistence/file"
	"github.com/dukex/flowrun/pkg/registry"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/web"
	"github.com/dukex/flowrun/pkg/workflow"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []eventbus.Event
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.published = append(r.published, event)

	return nil
}

type testEnv struct {
	app       *fiber.App
	store     *file.Persistence
	publisher *recordingPublisher
}

func setupTestApp(t *testing.T) testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.Register(trigger.Info(), trigger.NewTriggerNode(nil))
	reg.Register(lognode.Info(), lognode.NewLogNode())

	executor := workflow.NewExecutor(store, store, reg, workflow.WithLogger(logger))
	publisher := &recordingPublisher{}

	handlers := web.NewAPIHandlers(
		services.NewFlow(store),
		services.NewExecution(executor, store, publisher, logger),
		validator.New(validator.WithRequiredStructEnabled()),
		reg,
		logger,
	)

	app := fiber.New()
	web.Mount(app, handlers)

	return testEnv{app: app, store: store, publisher: publisher}
}

func greeterRequest() web.SaveFlowRequest {
	return web.SaveFlowRequest{
		Name:  "Greeter",
		Owner: "user-1",
		Data: models.FlowData{
			Nodes: []models.Node{
				{ID: "start", Type: "trigger-manual"},
				{ID: "say", Data: models.NodeData{
					Type:   "action-log",
					Config: map[string]any{"message": "hello {{start.name}}"},
				}},
			},
			Edges: []models.Edge{{Source: "start", Target: "say"}},
		},
	}
}

func do(t *testing.T, app *fiber.App, method, target string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func createFlow(t *testing.T, app *fiber.App) models.Flow {
	t.Helper()

	resp, body := do(t, app, http.MethodPost, "/flows", greeterRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var flow models.Flow
	require.NoError(t, json.Unmarshal(body, &flow))

	return flow
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	kind, _ := problem["type"].(string)

	return kind
}

func TestAPIHandlers_FlowLifecycle(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	created := createFlow(t, env.app)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Greeter", created.Name)

	resp, body := do(t, env.app, http.MethodGet, "/flows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var flows []models.Flow
	require.NoError(t, json.Unmarshal(body, &flows))
	require.Len(t, flows, 1)

	update := greeterRequest()
	update.Name = "Greeter v2"

	resp, body = do(t, env.app, http.MethodPut, "/flows/"+created.ID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, env.app, http.MethodGet, "/flows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Flow
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, "Greeter v2", fetched.Name)
	assert.Equal(t, created.ID, fetched.ID)

	resp, _ = do(t, env.app, http.MethodDelete, "/flows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, env.app, http.MethodGet, "/flows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "flow_not_found", problemType(t, body))
}

func TestAPIHandlers_CreateFlowValidation(t *testing.T) {
	t.Parallel()

	noTrigger := greeterRequest()
	noTrigger.Data.Nodes[0] = models.Node{ID: "start", Type: "action-log"}

	dangling := greeterRequest()
	dangling.Data.Edges = append(dangling.Data.Edges, models.Edge{Source: "say", Target: "ghost"})

	cyclic := greeterRequest()
	cyclic.Data.Nodes = append(cyclic.Data.Nodes, models.Node{ID: "again", Data: models.NodeData{Type: "action-log"}})
	cyclic.Data.Edges = append(cyclic.Data.Edges,
		models.Edge{Source: "say", Target: "again"},
		models.Edge{Source: "again", Target: "say"},
	)

	unnamed := greeterRequest()
	unnamed.Name = ""

	tests := []struct {
		name     string
		body     any
		wantType string
	}{
		{name: "missing name", body: unnamed, wantType: "validation_error"},
		{name: "no trigger", body: noTrigger, wantType: "invalid_graph"},
		{name: "dangling edge", body: dangling, wantType: "invalid_graph"},
		{name: "cycle", body: cyclic, wantType: "invalid_graph"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := setupTestApp(t)

			resp, body := do(t, env.app, http.MethodPost, "/flows", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
			assert.Equal(t, tt.wantType, problemType(t, body))
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		env := setupTestApp(t)

		req := httptest.NewRequest(http.MethodPost, "/flows", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := env.app.Test(req)
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPIHandlers_ExecuteFlow(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	flow := createFlow(t, env.app)

	resp, body := do(t, env.app, http.MethodPost, "/flows/"+flow.ID+"/execute",
		web.ExecuteFlowRequest{InputData: map[string]any{"start": map[string]any{"name": "Ada"}}},
		web.ActorHeader, "user-7",
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var execution models.Execution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, "user-7", execution.TriggeredBy)
	assert.Equal(t, 2, execution.CompletedNodes)

	say, ok := execution.OutputData["say"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello Ada", say["message"])

	resp, body = do(t, env.app, http.MethodGet, "/executions/"+execution.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail services.ExecutionDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, execution.ID, detail.ID)
	assert.Len(t, detail.Nodes, 2)

	resp, body = do(t, env.app, http.MethodGet, "/flows/"+flow.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []models.Execution
	require.NoError(t, json.Unmarshal(body, &runs))
	assert.Len(t, runs, 1)
}

func TestAPIHandlers_ExecuteFlowWithoutBody(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	flow := createFlow(t, env.app)

	resp, body := do(t, env.app, http.MethodPost, "/flows/"+flow.ID+"/execute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestAPIHandlers_NotFound(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	tests := []struct {
		method, target, wantType string
	}{
		{http.MethodPost, "/flows/missing/execute", "flow_not_found"},
		{http.MethodPost, "/flows/missing/trigger", "flow_not_found"},
		{http.MethodGet, "/flows/missing/executions", "flow_not_found"},
		{http.MethodDelete, "/flows/missing", "flow_not_found"},
		{http.MethodGet, "/executions/missing", "execution_not_found"},
	}

	for _, tt := range tests {
		resp, body := do(t, env.app, tt.method, tt.target, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tt.target)
		assert.Equal(t, tt.wantType, problemType(t, body), tt.target)
	}
}

func TestAPIHandlers_StreamFlow(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	flow := createFlow(t, env.app)

	resp, body := do(t, env.app, http.MethodPost, "/flows/"+flow.ID+"/execute/stream",
		web.ExecuteFlowRequest{InputData: map[string]any{"start": map[string]any{"name": "Ada"}}},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []events.EventType

	for _, frame := range strings.Split(strings.TrimSpace(string(body)), "\n\n") {
		require.True(t, strings.HasPrefix(frame, "data: "), frame)

		var event struct {
			Type events.EventType `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &event))

		types = append(types, event.Type)
	}

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.NodeExecutionBeforeEvent,
		events.NodeExecutionAfterEvent,
		events.NodeExecutionBeforeEvent,
		events.NodeExecutionAfterEvent,
		events.ExecutionFinishedEvent,
	}, types)
}

func TestAPIHandlers_StreamMissingFlow(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	resp, body := do(t, env.app, http.MethodPost, "/flows/missing/execute/stream", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"type":"executionError"`)
	assert.Contains(t, string(body), workflow.MessageFlowNotFound)
}

func TestAPIHandlers_TriggerFlow(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	flow := createFlow(t, env.app)

	resp, body := do(t, env.app, http.MethodPost, "/flows/"+flow.ID+"/trigger",
		web.ExecuteFlowRequest{InputData: map[string]any{"start": map[string]any{"name": "Ada"}}},
		web.ActorHeader, "user-3",
	)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var ack web.TriggerFlowResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.Equal(t, flow.ID, ack.FlowID)
	assert.NotEmpty(t, ack.EventID)

	require.Len(t, env.publisher.published, 1)

	triggered, ok := env.publisher.published[0].(events.FlowTriggered)
	require.True(t, ok)
	assert.Equal(t, ack.EventID, triggered.ID)
	assert.Equal(t, "user-3", triggered.ActorID)
}

func TestAPIHandlers_NodeTypesAndHealth(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	resp, body := do(t, env.app, http.MethodGet, "/node-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), lognode.Type)

	resp, body = do(t, env.app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}
