// ABOUTME: Raw heap snapshot payload structures and JSON decoding
// ABOUTME: Mirrors the serialized form produced by the V8 heap profiler

package snapshot

import (
	"encoding/json"
	"fmt"
)

// Payload is the decoded form of a raw heap snapshot: four parallel tables
// plus metadata describing the per-record field layout.
type Payload struct {
	Meta    Meta     // field names and type vocabularies
	Nodes   []int64  // flat node-record array
	Edges   []int64  // flat edge-record array
	Strings []string // string table
}

// Meta is the snapshot's schema metadata
type Meta struct {
	NodeTypes  []string // ordered vocabulary of node type names
	EdgeTypes  []string // ordered vocabulary of edge type names
	NodeFields []string // field names per node record, in record order
	EdgeFields []string // field names per edge record, in record order
}

// rawPayload matches the wire JSON shape. The type vocabularies are nested
// one level deep: node_types[0] is the array of type-name strings, the
// remaining entries describe field value types and are ignored.
type rawPayload struct {
	Snapshot struct {
		Meta struct {
			NodeTypes  []json.RawMessage `json:"node_types"`
			EdgeTypes  []json.RawMessage `json:"edge_types"`
			NodeFields []string          `json:"node_fields"`
			EdgeFields []string          `json:"edge_fields"`
		} `json:"meta"`
	} `json:"snapshot"`
	Nodes   []int64  `json:"nodes"`
	Edges   []int64  `json:"edges"`
	Strings []string `json:"strings"`
}

// DecodePayload unmarshals raw snapshot bytes into a Payload
func DecodePayload(data []byte) (*Payload, error) {
	var raw rawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot JSON: %v", ErrFormat, err)
	}

	nodeTypes, err := decodeVocabulary(raw.Snapshot.Meta.NodeTypes, "node_types")
	if err != nil {
		return nil, err
	}
	edgeTypes, err := decodeVocabulary(raw.Snapshot.Meta.EdgeTypes, "edge_types")
	if err != nil {
		return nil, err
	}

	return &Payload{
		Meta: Meta{
			NodeTypes:  nodeTypes,
			EdgeTypes:  edgeTypes,
			NodeFields: raw.Snapshot.Meta.NodeFields,
			EdgeFields: raw.Snapshot.Meta.EdgeFields,
		},
		Nodes:   raw.Nodes,
		Edges:   raw.Edges,
		Strings: raw.Strings,
	}, nil
}

// decodeVocabulary extracts the type-name array from the first entry of a
// meta type list.
func decodeVocabulary(entries []json.RawMessage, what string) ([]string, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: snapshot meta has no %s", ErrFormat, what)
	}
	var names []string
	if err := json.Unmarshal(entries[0], &names); err != nil {
		return nil, fmt.Errorf("%w: decoding %s[0]: %v", ErrFormat, what, err)
	}
	return names, nil
}
