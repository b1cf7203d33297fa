// ABOUTME: Closed node and edge kind enumerations
// ABOUTME: Maps the snapshot's runtime type vocabulary onto known kinds once

package snapshot

// NodeKind is the closed set of node type kinds the analysis knows about.
// Vocabulary entries that don't map to a known kind fall back to
// NodeKindOther and are treated as interesting.
type NodeKind int

// Known node kinds
const (
	NodeKindOther NodeKind = iota
	NodeKindObject
	NodeKindArray
	NodeKindString
	NodeKindHidden
	NodeKindCode
	NodeKindNumber
	NodeKindNative
	NodeKindSynthetic
)

// EdgeKind is the closed set of edge type kinds the analysis knows about
type EdgeKind int

// Known edge kinds
const (
	EdgeKindOther EdgeKind = iota
	EdgeKindProperty
	EdgeKindElement
	EdgeKindInternal
	EdgeKindWeak
	EdgeKindHidden
	EdgeKindShortcut
	EdgeKindContext
)

var nodeKindNames = map[string]NodeKind{
	"object":    NodeKindObject,
	"array":     NodeKindArray,
	"string":    NodeKindString,
	"hidden":    NodeKindHidden,
	"code":      NodeKindCode,
	"number":    NodeKindNumber,
	"native":    NodeKindNative,
	"synthetic": NodeKindSynthetic,
}

var edgeKindNames = map[string]EdgeKind{
	"property": EdgeKindProperty,
	"element":  EdgeKindElement,
	"internal": EdgeKindInternal,
	"weak":     EdgeKindWeak,
	"hidden":   EdgeKindHidden,
	"shortcut": EdgeKindShortcut,
	"context":  EdgeKindContext,
}

// nodeType is one resolved entry of the node type vocabulary
type nodeType struct {
	name string
	kind NodeKind
}

// edgeType is one resolved entry of the edge type vocabulary
type edgeType struct {
	name string
	kind EdgeKind
}

// resolveNodeTypes maps the runtime vocabulary onto the closed kind set
func resolveNodeTypes(names []string) []nodeType {
	out := make([]nodeType, len(names))
	for i, name := range names {
		out[i] = nodeType{name: name, kind: nodeKindNames[name]}
	}
	return out
}

// resolveEdgeTypes maps the runtime vocabulary onto the closed kind set
func resolveEdgeTypes(names []string) []edgeType {
	out := make([]edgeType, len(names))
	for i, name := range names {
		out[i] = edgeType{name: name, kind: edgeKindNames[name]}
	}
	return out
}

// uninterestingNode reports whether nodes of this kind are bookkeeping noise
// that should be filtered from the graph.
func uninterestingNode(k NodeKind) bool {
	switch k {
	case NodeKindHidden, NodeKindCode, NodeKindNumber, NodeKindNative, NodeKindSynthetic:
		return true
	}
	return false
}

// uninterestingEdge reports whether edges of this kind are filtered from the
// graph.
func uninterestingEdge(k EdgeKind) bool {
	switch k {
	case EdgeKindWeak, EdgeKindHidden, EdgeKindInternal:
		return true
	}
	return false
}
