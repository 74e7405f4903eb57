// Package graph builds the directed node graph of a flow and derives the
// orders in which its nodes can run.
package graph

import (
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/models"
)

var (
	// ErrNoTrigger indicates that every node has at least one incoming edge.
	ErrNoTrigger = errors.New("no trigger node found")

	// ErrCycle indicates that some nodes can never reach in-degree zero.
	ErrCycle = errors.New("flow graph contains a cycle")

	// ErrUnknownNode indicates an edge pointing at a node id that does not exist.
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrDuplicateNode indicates two nodes sharing the same id.
	ErrDuplicateNode = errors.New("duplicate node id")
)

// Ordering selects how a graph is linearised for execution.
type Ordering string

const (
	// OrderTopological runs every node after all of its predecessors.
	OrderTopological Ordering = "topological"

	// OrderBreadthFirst walks outward from the trigger nodes visiting each node once.
	OrderBreadthFirst Ordering = "breadth-first"
)

// Graph is an immutable view over a flow's nodes and edges. Build a fresh one
// per run.
type Graph struct {
	nodes     []models.Node
	index     map[string]int
	adjacency map[string][]string
	inDegree  map[string]int
	dangling  []models.Edge
	dupes     []string
}

// New builds a graph. Node order is preserved; edges whose endpoints are not
// nodes of the graph are kept aside and reported by Validate.
func New(nodes []models.Node, edges []models.Edge) *Graph {
	g := &Graph{
		nodes:     make([]models.Node, 0, len(nodes)),
		index:     make(map[string]int, len(nodes)),
		adjacency: make(map[string][]string, len(nodes)),
		inDegree:  make(map[string]int, len(nodes)),
	}

	for _, node := range nodes {
		if _, exists := g.index[node.ID]; exists {
			g.dupes = append(g.dupes, node.ID)

			continue
		}

		g.index[node.ID] = len(g.nodes)
		g.nodes = append(g.nodes, node)
		g.inDegree[node.ID] = 0
	}

	for _, edge := range edges {
		_, sourceOK := g.index[edge.Source]
		_, targetOK := g.index[edge.Target]

		if !sourceOK || !targetOK {
			g.dangling = append(g.dangling, edge)

			continue
		}

		g.adjacency[edge.Source] = append(g.adjacency[edge.Source], edge.Target)
		g.inDegree[edge.Target]++
	}

	return g
}

// FromFlow builds the graph of a stored flow.
func FromFlow(flow *models.Flow) *Graph {
	return New(flow.Data.Nodes, flow.Data.Edges)
}

// Nodes returns the nodes in input order.
func (g *Graph) Nodes() []models.Node {
	return g.nodes
}

// Node looks a node up by id.
func (g *Graph) Node(id string) (models.Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return models.Node{}, false
	}

	return g.nodes[i], true
}

// Len returns the number of distinct nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Successors returns the targets of id's outgoing edges in edge order.
func (g *Graph) Successors(id string) []string {
	return g.adjacency[id]
}

// Triggers returns the nodes with no incoming edges, in input order.
func (g *Graph) Triggers() []models.Node {
	var triggers []models.Node

	for _, node := range g.nodes {
		if g.inDegree[node.ID] == 0 {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// TopologicalOrder runs Kahn's algorithm with a FIFO queue seeded by the
// trigger nodes in input order. Nodes that never reach in-degree zero (cycle
// members and everything downstream of a cycle) are left out.
func (g *Graph) TopologicalOrder() []models.Node {
	inDegree := make(map[string]int, len(g.inDegree))
	for id, degree := range g.inDegree {
		inDegree[id] = degree
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]models.Node, 0, len(g.nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		order = append(order, g.nodes[g.index[current]])

		for _, next := range g.adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	return order
}

// BreadthFirst visits every node reachable from the trigger nodes exactly
// once, enqueuing successors in edge order.
func (g *Graph) BreadthFirst() []models.Node {
	triggers := g.Triggers()
	visited := make(map[string]bool, len(g.nodes))
	queue := make([]string, 0, len(g.nodes))

	for _, trigger := range triggers {
		queue = append(queue, trigger.ID)
	}

	order := make([]models.Node, 0, len(g.nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}

		visited[current] = true
		order = append(order, g.nodes[g.index[current]])

		for _, next := range g.adjacency[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	return order
}

// Order linearises the graph with the requested strategy.
func (g *Graph) Order(ordering Ordering) []models.Node {
	if ordering == OrderBreadthFirst {
		return g.BreadthFirst()
	}

	return g.TopologicalOrder()
}

// Unreached returns the graph nodes missing from order, in input order.
func (g *Graph) Unreached(order []models.Node) []models.Node {
	seen := make(map[string]bool, len(order))
	for _, node := range order {
		seen[node.ID] = true
	}

	var missing []models.Node

	for _, node := range g.nodes {
		if !seen[node.ID] {
			missing = append(missing, node)
		}
	}

	return missing
}

// HasCycle reports whether some node can never be scheduled topologically.
func (g *Graph) HasCycle() bool {
	return len(g.TopologicalOrder()) != len(g.nodes)
}

// Validate checks the structural rules a flow must satisfy before it is saved.
func (g *Graph) Validate() error {
	var errs []error

	for _, id := range g.dupes {
		errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, id))
	}

	for _, edge := range g.dangling {
		errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrUnknownNode, edge.Source, edge.Target))
	}

	if len(g.nodes) > 0 && len(g.Triggers()) == 0 {
		errs = append(errs, ErrNoTrigger)
	}

	if missing := g.Unreached(g.TopologicalOrder()); len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for _, node := range missing {
			ids = append(ids, node.ID)
		}

		errs = append(errs, fmt.Errorf("%w: %v", ErrCycle, ids))
	}

	return errors.Join(errs...)
}
