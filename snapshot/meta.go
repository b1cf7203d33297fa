// ABOUTME: Field offset resolution and edge slice layout selection
// ABOUTME: Handles the two historical node-record encodings behind one interface

package snapshot

import "fmt"

// meta holds the resolved schema for one snapshot: type vocabularies mapped
// to closed kinds, field offsets by name, and the edge slice layout.
type meta struct {
	nodeTypes []nodeType
	edgeTypes []edgeType

	nodeTypeIx     int
	nodeNameIx     int
	nodeIDIx       int
	nodeFieldCount int

	edgeTypeIx     int
	edgeNameIx     int
	edgeToIx       int
	edgeFieldCount int

	spanner edgeSpanner
}

// edgeSpanner hides the layout difference between the two node-record
// encodings. It reports the half-open [start, end) range of a node's edge
// records in the flat edge array. cursor is the end offset of the previous
// node's slice; callers thread each returned end back in as the next cursor.
type edgeSpanner interface {
	span(m *meta, p *Payload, nodeIx int, cursor int64) (start, end int64)
}

// edgesIndexLayout reads each node's edge slice start offset from the node
// record; the slice ends where the next node's slice starts.
type edgesIndexLayout struct {
	offset int // node-record offset of the edges_index field
}

func (l edgesIndexLayout) span(m *meta, p *Payload, nodeIx int, cursor int64) (start, end int64) {
	start = p.Nodes[nodeIx+l.offset]
	nextIx := nodeIx + l.offset + m.nodeFieldCount
	if nextIx < len(p.Nodes) {
		end = p.Nodes[nextIx]
	} else {
		end = int64(len(p.Edges))
	}
	return start, end
}

// edgeCountLayout reads an edge count from the node record and advances a
// running cursor through the flat edge array.
type edgeCountLayout struct {
	offset int // node-record offset of the edge_count field
}

func (l edgeCountLayout) span(m *meta, p *Payload, nodeIx int, cursor int64) (start, end int64) {
	count := p.Nodes[nodeIx+l.offset]
	return cursor, cursor + count*int64(m.edgeFieldCount)
}

// resolveMeta turns raw schema metadata into field offsets and kind tables.
// It selects the edge slice layout once, by which node field is present.
func resolveMeta(m Meta) (*meta, error) {
	r := &meta{
		nodeTypes:      resolveNodeTypes(m.NodeTypes),
		edgeTypes:      resolveEdgeTypes(m.EdgeTypes),
		nodeFieldCount: len(m.NodeFields),
		edgeFieldCount: len(m.EdgeFields),
	}

	var err error
	if r.nodeTypeIx, err = findField("type", m.NodeFields, "node_fields"); err != nil {
		return nil, err
	}
	if r.nodeNameIx, err = findField("name", m.NodeFields, "node_fields"); err != nil {
		return nil, err
	}
	if r.nodeIDIx, err = findField("id", m.NodeFields, "node_fields"); err != nil {
		return nil, err
	}

	// Two mutually exclusive encodings: edges_index stores each node's start
	// offset into the edge array, edge_count stores a per-node edge count.
	if ix := fieldIndex("edges_index", m.NodeFields); ix >= 0 {
		r.spanner = edgesIndexLayout{offset: ix}
	} else {
		ix, err := findField("edge_count", m.NodeFields, "node_fields")
		if err != nil {
			return nil, err
		}
		r.spanner = edgeCountLayout{offset: ix}
	}

	if r.edgeTypeIx, err = findField("type", m.EdgeFields, "edge_fields"); err != nil {
		return nil, err
	}
	if r.edgeNameIx, err = findField("name_or_index", m.EdgeFields, "edge_fields"); err != nil {
		return nil, err
	}
	if r.edgeToIx, err = findField("to_node", m.EdgeFields, "edge_fields"); err != nil {
		return nil, err
	}

	if r.nodeFieldCount == 0 || r.edgeFieldCount == 0 {
		return nil, fmt.Errorf("%w: empty field list in snapshot meta", ErrFormat)
	}
	return r, nil
}

// fieldIndex returns the first index of name in fields, or -1
func fieldIndex(name string, fields []string) int {
	for i, f := range fields {
		if f == name {
			return i
		}
	}
	return -1
}

// findField resolves a required field offset by name
func findField(name string, fields []string, what string) (int, error) {
	ix := fieldIndex(name, fields)
	if ix < 0 {
		return 0, fmt.Errorf("%w: cannot find field %q in %s", ErrFormat, name, what)
	}
	return ix, nil
}
