// ABOUTME: Retention analyzer classifying heap objects as leaked or clean
// ABOUTME: Searches retaining paths backward from container elements to stop nodes

// Package leakfinder classifies heap objects as probable leaks.
//
// In a garbage-collected heap every live object has retaining paths keeping
// it alive. An object is considered leaked when it sits in a configured
// container and every retaining path goes through that container or another
// configured "bad" data structure, never through a genuine root. A path that
// reaches a Window object, or any object already proven reachable that way,
// exonerates the candidate.
package leakfinder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prateek/leaklens/graph"
)

// ErrContainerNotFound marks a configured container chain that matched no
// node in the snapshot. This is a configuration error, not a data error.
var ErrContainerNotFound = errors.New("container not found")

// maxPathDepth bounds the retaining-path search. Paths longer than this are
// abandoned without a verdict.
const maxPathDepth = 30

// Finder finds potentially leaking objects in a parsed heap snapshot
type Finder struct {
	containers [][]string
	badNodes   [][]string
	prefix     string
	suffix     string
}

// New creates a Finder.
//
// containers name the collections whose direct elements are examined as
// leak candidates, as dot-separated property chains (e.g.
// "goog.Disposable.instances_"). badNodes name data structures whose
// retention does not count as intentional. prefix is prepended to locator
// expressions (useful when the code lives in another frame) and suffix
// names the property holding an object's creation stack (e.g.
// ".creationStack").
func New(containers, badNodes []string, prefix, suffix string) *Finder {
	return &Finder{
		containers: splitChains(containers),
		badNodes:   splitChains(badNodes),
		prefix:     prefix,
		suffix:     suffix,
	}
}

func splitChains(chains []string) [][]string {
	out := make([][]string, len(chains))
	for i, c := range chains {
		out[i] = strings.Split(c, ".")
	}
	return out
}

// nodeSet is a set of graph nodes
type nodeSet map[*graph.Node]bool

// FindLeaks classifies every element of every configured container and
// returns the candidates whose retaining paths all end badly. Candidates are
// ordered by container declaration order, then element order.
func (f *Finder) FindLeaks(g graph.Graph) ([]*Candidate, error) {
	// Retaining paths are searched until one of these is reached. The set
	// grows as objects are proven clean, so later searches terminate early.
	stop := make(nodeSet)

	// A path ending at one of these proves nothing good: the retention is
	// unintentional by configuration.
	bad := make(nodeSet)

	containers := make([][]*graph.Node, len(f.containers))

	g.ForEachNode(func(n *graph.Node) {
		// Window objects are genuine roots. A retaining path reaching one
		// without passing a bad node proves the object is intentionally
		// alive.
		if n.ClassName == "Window" || strings.HasPrefix(n.ClassName, "Window / ") {
			stop[n] = true
			return
		}
		for _, chain := range f.badNodes {
			if retainedByChain(n, chain) {
				stop[n] = true
				bad[n] = true
				break
			}
		}
		for i, chain := range f.containers {
			if retainedByChain(n, chain) {
				// Containers are themselves bad stop nodes: a retention
				// chain through another container's bookkeeping is not a
				// genuine root.
				stop[n] = true
				bad[n] = true
				n.ContainerName = strings.Join(chain, ".")
				containers[i] = append(containers[i], n)
				break
			}
		}
	})

	for i, chain := range f.containers {
		if len(containers[i]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, strings.Join(chain, "."))
		}
	}

	var leaks []*Candidate
	for _, nodes := range containers {
		// Map iteration found these in arbitrary order; sort for a
		// deterministic report.
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID < nodes[b].ID })
		for _, container := range nodes {
			for _, e := range container.Outgoing {
				if e.Kind != "element" {
					continue
				}
				if good := findGoodPath(e.To, stop, bad); good != nil {
					// Everything on a proven-good path is known clean;
					// remember that so later searches stop early.
					for _, n := range good {
						stop[n] = true
					}
					continue
				}
				leaks = append(leaks, &Candidate{
					Node:    e.To,
					Locator: f.prefix + container.ContainerName + "[" + e.Label + "]",
					suffix:  f.suffix,
				})
			}
		}
	}
	return leaks, nil
}

// retainedByChain reports whether node is retained by the given chain of
// property names, matched right to left against its retainers. E.g. chain
// ["foo", "bar", "baz"] matches a node reachable as obj.foo.bar.baz.
func retainedByChain(n *graph.Node, chain []string) bool {
	if len(chain) == 0 {
		return true
	}
	name := chain[len(chain)-1]
	for _, e := range n.Incoming {
		if e.Label == name && retainedByChain(e.From, chain[:len(chain)-1]) {
			return true
		}
	}
	return false
}

// findGoodPath runs a depth-first search backward along incoming edges from
// start, enumerating retaining paths. A path terminates at a node with no
// retainers or at a stop node. The first path whose terminal node is not a
// bad stop node is returned as proof the object is clean; nil means every
// path (possibly none, for pure retention cycles) ended badly and the object
// is leaking.
//
// The search is an explicit stack walk rather than recursion so the fixed
// depth bound also bounds memory. Nodes already on the current path are not
// revisited, which keeps retention cycles from looping forever.
func findGoodPath(start *graph.Node, stop, bad nodeSet) []*graph.Node {
	type frame struct {
		node *graph.Node
		next int // index of the next incoming edge to try
	}

	stack := []frame{{node: start}}
	path := []*graph.Node{start}
	inPath := nodeSet{start: true}

	pop := func() {
		top := stack[len(stack)-1].node
		stack = stack[:len(stack)-1]
		delete(inPath, top)
		path = path[:len(path)-1]
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next == 0 {
			// First visit: check the path-terminating conditions.
			if len(path) > maxPathDepth {
				// Too deep; abandon without a verdict.
				pop()
				continue
			}
			if len(top.node.Incoming) == 0 || stop[top.node] {
				if !bad[top.node] {
					good := make([]*graph.Node, len(path))
					copy(good, path)
					return good
				}
				pop()
				continue
			}
		}

		advanced := false
		for top.next < len(top.node.Incoming) {
			e := top.node.Incoming[top.next]
			top.next++
			if !inPath[e.From] {
				stack = append(stack, frame{node: e.From})
				path = append(path, e.From)
				inPath[e.From] = true
				advanced = true
				break
			}
		}
		if !advanced {
			pop()
		}
	}
	return nil
}
