// ABOUTME: Graph interface and in-memory implementation
// ABOUTME: Provides methods for storing and linking heap object graphs

package graph

import (
	"fmt"
	"sync"
)

// Graph represents a heap object graph. It is assembled once by a snapshot
// parser and read-only afterward.
type Graph interface {
	// AddNode adds a node to the graph
	AddNode(n *Node)

	// AddEdge resolves an edge's endpoints by id and links it into the
	// source node's outgoing list and the target node's incoming list
	AddEdge(e *Edge) error

	// Node retrieves a node by ID
	Node(id NodeID) *Node

	// NumNodes returns the total number of nodes
	NumNodes() int

	// ForEachNode iterates over all nodes in unspecified order
	ForEachNode(fn func(*Node))
}

// MemGraph is an in-memory implementation of Graph
type MemGraph struct {
	mu    sync.RWMutex
	nodes map[NodeID]*Node
}

// NewMemGraph creates a new in-memory graph
func NewMemGraph() *MemGraph {
	return &MemGraph{
		nodes: make(map[NodeID]*Node),
	}
}

// AddNode adds a node to the graph
func (g *MemGraph) AddNode(n *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
}

// AddEdge links an edge into both endpoints' edge lists. It fails if either
// endpoint id has no corresponding node.
func (g *MemGraph) AddEdge(e *Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[e.FromID]
	if !ok {
		return fmt.Errorf("edge source node %d not in graph", e.FromID)
	}
	to, ok := g.nodes[e.ToID]
	if !ok {
		return fmt.Errorf("edge target node %d not in graph", e.ToID)
	}

	e.From = from
	e.To = to
	from.Outgoing = append(from.Outgoing, e)
	to.Incoming = append(to.Incoming, e)
	return nil
}

// Node retrieves a node by ID
func (g *MemGraph) Node(id NodeID) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// NumNodes returns the total number of nodes
func (g *MemGraph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// ForEachNode iterates over all nodes
func (g *MemGraph) ForEachNode(fn func(*Node)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		fn(n)
	}
}
