package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/flowrun/pkg/models"
)

func node(id, nodeType string) models.Node {
	return models.Node{ID: id, Data: models.NodeData{Type: nodeType}}
}

func edge(source, target string) models.Edge {
	return models.Edge{Source: source, Target: target}
}

func ids(nodes []models.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}

	return out
}

func TestTopologicalOrder_Diamond(t *testing.T) {
	g := New(
		[]models.Node{node("d", "response-webhook"), node("a", "trigger-webhook"), node("b", "action-http"), node("c", "ai-gemini")},
		[]models.Edge{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d")},
	)

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(g.TopologicalOrder()))
}

func TestTopologicalOrder_Deterministic(t *testing.T) {
	nodes := []models.Node{node("t2", "trigger-manual"), node("t1", "trigger-webhook"), node("x", "action-http"), node("y", "action-http")}
	edges := []models.Edge{edge("t1", "y"), edge("t2", "x"), edge("x", "y")}

	first := ids(New(nodes, edges).TopologicalOrder())
	for range 20 {
		assert.Equal(t, first, ids(New(nodes, edges).TopologicalOrder()))
	}

	assert.Equal(t, []string{"t2", "t1", "x", "y"}, first)
}

func TestTopologicalOrder_ExcludesCycles(t *testing.T) {
	g := New(
		[]models.Node{node("t", "trigger-webhook"), node("a", "action-http"), node("b", "action-http"), node("c", "action-http")},
		[]models.Edge{edge("t", "a"), edge("a", "b"), edge("b", "a"), edge("b", "c")},
	)

	order := g.TopologicalOrder()
	assert.Equal(t, []string{"t"}, ids(order))
	assert.Equal(t, []string{"a", "b", "c"}, ids(g.Unreached(order)))
	assert.True(t, g.HasCycle())
}

func TestTriggers(t *testing.T) {
	g := New(
		[]models.Node{node("a", "trigger-webhook"), node("b", "action-http"), node("orphan", "action-http")},
		[]models.Edge{edge("a", "b")},
	)

	assert.Equal(t, []string{"a", "orphan"}, ids(g.Triggers()))
}

func TestTriggers_NoneWhenEveryNodeHasIncomingEdge(t *testing.T) {
	g := New(
		[]models.Node{node("a", "action-http"), node("b", "action-http")},
		[]models.Edge{edge("a", "b"), edge("b", "a")},
	)

	assert.Empty(t, g.Triggers())
	assert.Empty(t, g.TopologicalOrder())
}

func TestBreadthFirst_VisitsReachableOnce(t *testing.T) {
	g := New(
		[]models.Node{node("t", "trigger-webhook"), node("a", "action-http"), node("b", "action-http"), node("c", "action-http")},
		[]models.Edge{edge("t", "a"), edge("t", "b"), edge("a", "c"), edge("b", "c"), edge("c", "a")},
	)

	order := g.BreadthFirst()
	assert.Equal(t, []string{"t", "a", "b", "c"}, ids(order))
	assert.Empty(t, g.Unreached(order))
}

func TestBreadthFirst_DiffersFromTopologicalOnUnevenDepth(t *testing.T) {
	g := New(
		[]models.Node{node("t", "trigger-webhook"), node("a", "action-http"), node("b", "action-http"), node("c", "action-http")},
		[]models.Edge{edge("t", "a"), edge("t", "c"), edge("a", "b"), edge("b", "c")},
	)

	assert.Equal(t, []string{"t", "a", "c", "b"}, ids(g.Order(OrderBreadthFirst)))
	assert.Equal(t, []string{"t", "a", "b", "c"}, ids(g.Order(OrderTopological)))
}

func TestNew_IgnoresDanglingEdgesAndDuplicates(t *testing.T) {
	g := New(
		[]models.Node{node("a", "trigger-webhook"), node("a", "action-http"), node("b", "action-http")},
		[]models.Edge{edge("a", "b"), edge("a", "ghost")},
	)

	assert.Equal(t, 2, g.Len())
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "trigger-webhook", n.NodeType())
	assert.Equal(t, []string{"b"}, g.Successors("a"))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		nodes   []models.Node
		edges   []models.Edge
		wantErr []error
	}{
		{
			name:  "valid",
			nodes: []models.Node{node("a", "trigger-webhook"), node("b", "action-http")},
			edges: []models.Edge{edge("a", "b")},
		},
		{
			name:    "dangling edge",
			nodes:   []models.Node{node("a", "trigger-webhook")},
			edges:   []models.Edge{edge("a", "missing")},
			wantErr: []error{ErrUnknownNode},
		},
		{
			name:    "cycle without trigger",
			nodes:   []models.Node{node("a", "action-http"), node("b", "action-http")},
			edges:   []models.Edge{edge("a", "b"), edge("b", "a")},
			wantErr: []error{ErrNoTrigger, ErrCycle},
		},
		{
			name:    "duplicate ids",
			nodes:   []models.Node{node("a", "trigger-webhook"), node("a", "action-http")},
			wantErr: []error{ErrDuplicateNode},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := New(tc.nodes, tc.edges).Validate()
			if len(tc.wantErr) == 0 {
				assert.NoError(t, err)

				return
			}

			for _, want := range tc.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}
