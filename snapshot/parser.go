// ABOUTME: Heap snapshot parser producing a linked object graph
// ABOUTME: Decodes the flat node and edge arrays and filters bookkeeping noise

package snapshot

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/prateek/leaklens/graph"
)

// Error categories. All are fatal for the snapshot being parsed: no partial
// graph is ever returned.
var (
	// ErrFormat marks malformed or unsupported snapshot metadata
	ErrFormat = errors.New("snapshot format error")

	// ErrTruncated marks a record whose declared extent exceeds its array
	ErrTruncated = errors.New("snapshot data truncated")

	// ErrIntegrity marks cross-references that don't resolve, e.g. an edge
	// into a node id that does not exist
	ErrIntegrity = errors.New("snapshot integrity error")
)

// Parse decodes raw snapshot bytes and builds the object graph
func Parse(data []byte) (graph.Graph, error) {
	p, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}
	return ParsePayload(p)
}

// ParsePayload builds the object graph from a decoded payload.
//
// Nodes of uninteresting kinds (hidden, code, number, native, synthetic) are
// dropped, as are weak/hidden/internal edges and edges into dropped nodes.
// Dropped nodes still occupy edge-array space, so their slices are walked
// past to keep the offset accounting correct.
func ParsePayload(p *Payload) (graph.Graph, error) {
	m, err := resolveMeta(p.Meta)
	if err != nil {
		return nil, err
	}

	ps := &parser{p: p, m: m, g: graph.NewMemGraph()}
	if err := ps.run(); err != nil {
		return nil, err
	}
	return ps.g, nil
}

// parser is the per-snapshot parsing context. Nothing in it survives a run.
type parser struct {
	p *Payload
	m *meta
	g *graph.MemGraph

	// pending holds decoded edges until every node exists, so endpoints can
	// be linked by id in a second pass
	pending []*graph.Edge
}

func (ps *parser) run() error {
	cursor := int64(0)
	for ix := 0; ix < len(ps.p.Nodes); ix += ps.m.nodeFieldCount {
		end, err := ps.readNode(ix, cursor)
		if err != nil {
			return err
		}
		cursor = end
	}

	for _, e := range ps.pending {
		if err := ps.g.AddEdge(e); err != nil {
			return fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
	}
	return nil
}

// readNode decodes one node record. It returns the end offset of the node's
// edge slice, which is the cursor for the next node under the edge-count
// layout. Uninteresting nodes return their slice end without creating a
// graph node.
func (ps *parser) readNode(ix int, cursor int64) (int64, error) {
	m, p := ps.m, ps.p

	if ix+m.nodeFieldCount > len(p.Nodes) {
		return 0, fmt.Errorf("%w: node record at offset %d", ErrTruncated, ix)
	}

	t, err := ps.nodeTypeAt(ix)
	if err != nil {
		return 0, err
	}

	start, end := m.spanner.span(m, p, ix, cursor)
	if start < 0 || start > end || end > int64(len(p.Edges)) {
		return 0, fmt.Errorf("%w: edge slice [%d, %d) for node at offset %d", ErrTruncated, start, end, ix)
	}

	if uninterestingNode(t.kind) {
		return end, nil
	}

	nameIx := p.Nodes[ix+m.nodeNameIx]
	id := graph.NodeID(p.Nodes[ix+m.nodeIDIx])

	n := &graph.Node{ID: id, Kind: t.name}
	if t.kind == NodeKindObject {
		if n.ClassName, err = ps.stringAt(nameIx); err != nil {
			return 0, err
		}
	} else {
		n.ClassName = "(" + t.name + ")"
	}
	if t.kind == NodeKindString {
		if n.StringValue, err = ps.stringAt(nameIx); err != nil {
			return 0, err
		}
	}

	for edgeIx := start; edgeIx < end; edgeIx += int64(m.edgeFieldCount) {
		e, err := ps.readEdge(id, int(edgeIx))
		if err != nil {
			return 0, err
		}
		if e != nil {
			ps.pending = append(ps.pending, e)
		}
	}

	ps.g.AddNode(n)
	return end, nil
}

// readEdge decodes one edge record within a node's slice. It returns nil for
// edges that are filtered: uninteresting edge kinds and edges whose target
// node is itself filtered.
func (ps *parser) readEdge(fromID graph.NodeID, edgeIx int) (*graph.Edge, error) {
	m, p := ps.m, ps.p

	if edgeIx+m.edgeFieldCount > len(p.Edges) {
		return nil, fmt.Errorf("%w: edge record at offset %d", ErrTruncated, edgeIx)
	}

	typeIx := p.Edges[edgeIx+m.edgeTypeIx]
	if typeIx < 0 || typeIx >= int64(len(m.edgeTypes)) {
		return nil, fmt.Errorf("%w: edge type index %d out of range", ErrFormat, typeIx)
	}
	t := m.edgeTypes[typeIx]
	if uninterestingEdge(t.kind) {
		return nil, nil
	}

	nameOrIx := p.Edges[edgeIx+m.edgeNameIx]
	toIx := p.Edges[edgeIx+m.edgeToIx]
	if toIx < 0 || int(toIx)+m.nodeFieldCount > len(p.Nodes) {
		return nil, fmt.Errorf("%w: edge target offset %d out of range", ErrTruncated, toIx)
	}

	targetType, err := ps.nodeTypeAt(int(toIx))
	if err != nil {
		return nil, err
	}
	if uninterestingNode(targetType.kind) {
		// An edge into a filtered node is meaningless
		return nil, nil
	}
	toID := graph.NodeID(p.Nodes[int(toIx)+m.nodeIDIx])

	// Element edges carry a numeric index instead of a name. Any other raw
	// value inside string-table bounds resolves through the table, even for
	// edge kinds where that is questionable; this governs only how labels
	// display, so stay permissive.
	var label string
	if t.kind == EdgeKindElement || nameOrIx < 0 || nameOrIx >= int64(len(p.Strings)) {
		label = strconv.FormatInt(nameOrIx, 10)
	} else {
		label = p.Strings[nameOrIx]
	}

	return &graph.Edge{FromID: fromID, ToID: toID, Kind: t.name, Label: label}, nil
}

// nodeTypeAt resolves the type vocabulary entry for the node record at the
// given offset.
func (ps *parser) nodeTypeAt(ix int) (nodeType, error) {
	typeIx := ps.p.Nodes[ix+ps.m.nodeTypeIx]
	if typeIx < 0 || typeIx >= int64(len(ps.m.nodeTypes)) {
		return nodeType{}, fmt.Errorf("%w: node type index %d out of range", ErrFormat, typeIx)
	}
	return ps.m.nodeTypes[typeIx], nil
}

// stringAt resolves a string table reference
func (ps *parser) stringAt(ix int64) (string, error) {
	if ix < 0 || ix >= int64(len(ps.p.Strings)) {
		return "", fmt.Errorf("%w: string index %d out of range", ErrFormat, ix)
	}
	return ps.p.Strings[ix], nil
}
