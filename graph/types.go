// ABOUTME: Core data types for the heap object graph
// ABOUTME: Defines Node, Edge, and NodeID structures

package graph

// NodeID is a unique identifier for a heap object within one snapshot
type NodeID int64

// Node represents a single heap object
type Node struct {
	ID          NodeID // Unique identifier
	Kind        string // Coarse type kind (e.g. "object", "array", "string")
	ClassName   string // Constructor name for objects, "(kind)" for other kinds
	StringValue string // The represented string, for string nodes only

	// ContainerName is the dotted chain naming the container this node was
	// matched against. Set at most once, by the retention analyzer.
	ContainerName string

	Incoming []*Edge // Edges whose target this node is (its retainers)
	Outgoing []*Edge // Edges whose source this node is (what it retains)
}

// Edge represents a directed retaining relationship between two heap objects
type Edge struct {
	FromID NodeID // Source node id, valid before the graph links endpoints
	ToID   NodeID // Target node id, valid before the graph links endpoints
	From   *Node  // Resolved source node, set during graph assembly
	To     *Node  // Resolved target node, set during graph assembly
	Kind   string // Edge kind (e.g. "property", "element")
	Label  string // Property name, or element index rendered as text
}
