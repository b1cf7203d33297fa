// ABOUTME: Tests for the retention analyzer
// ABOUTME: Validates path search verdicts, cycles, and container classification

package leakfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/leaklens/graph"
)

// testGraph builds graphs edge by edge for tests
type testGraph struct {
	t *testing.T
	g *graph.MemGraph
}

func newTestGraph(t *testing.T) *testGraph {
	return &testGraph{t: t, g: graph.NewMemGraph()}
}

func (tg *testGraph) node(id graph.NodeID, className string) *graph.Node {
	n := &graph.Node{ID: id, Kind: "object", ClassName: className}
	tg.g.AddNode(n)
	return n
}

func (tg *testGraph) edge(from, to graph.NodeID, kind, label string) {
	tg.t.Helper()
	require.NoError(tg.t, tg.g.AddEdge(&graph.Edge{FromID: from, ToID: to, Kind: kind, Label: label}))
}

func TestNodeWithoutRetainersIsClean(t *testing.T) {
	tg := newTestGraph(t)
	orphan := tg.node(1, "Orphan")

	// A node with no incoming edges yields a single immediate path ending
	// at itself, which is not a bad terminal.
	path := findGoodPath(orphan, nodeSet{}, nodeSet{})
	require.Len(t, path, 1)
	assert.Same(t, orphan, path[0])
}

func TestPureCycleYieldsNoPath(t *testing.T) {
	tg := newTestGraph(t)
	tg.node(1, "A")
	tg.node(2, "B")
	tg.node(3, "C")
	// Retention cycle: A is retained by B, B by C, C by A
	tg.edge(2, 1, "property", "a")
	tg.edge(3, 2, "property", "b")
	tg.edge(1, 3, "property", "c")

	for id := graph.NodeID(1); id <= 3; id++ {
		assert.Nil(t, findGoodPath(tg.g.Node(id), nodeSet{}, nodeSet{}))
	}
}

func TestDepthLimitAbandonsPath(t *testing.T) {
	tg := newTestGraph(t)
	// A retainer chain longer than the depth bound, ending at a root-like
	// node. The search must abandon it rather than exonerate the start.
	const chainLen = maxPathDepth + 5
	for id := graph.NodeID(1); id <= chainLen; id++ {
		tg.node(id, "Link")
	}
	for id := graph.NodeID(1); id < chainLen; id++ {
		tg.edge(id+1, id, "property", "next")
	}

	assert.Nil(t, findGoodPath(tg.g.Node(1), nodeSet{}, nodeSet{}))

	// A chain inside the bound is fine
	shallow := tg.g.Node(chainLen - maxPathDepth + 1)
	assert.NotNil(t, findGoodPath(shallow, nodeSet{}, nodeSet{}))
}

func TestStopNodeTerminatesSearch(t *testing.T) {
	tg := newTestGraph(t)
	start := tg.node(1, "Obj")
	stopper := tg.node(2, "Stopper")
	beyond := tg.node(3, "Beyond")
	tg.edge(2, 1, "property", "x")
	tg.edge(3, 2, "property", "y")

	// Stopping at a clean node exonerates without looking further
	path := findGoodPath(start, nodeSet{stopper: true}, nodeSet{})
	require.Len(t, path, 2)
	assert.Same(t, stopper, path[1])

	// Stopping at a bad node does not; the only path is bad
	assert.Nil(t, findGoodPath(start, nodeSet{stopper: true}, nodeSet{stopper: true}))

	_ = beyond
}

// The scenario from the tool's purpose: element 0 of the container is only
// retained through bad bookkeeping, element 1 also through a genuine chain.
func TestFindLeaks(t *testing.T) {
	tg := newTestGraph(t)
	root := tg.node(1, "Root")
	tg.node(2, "Container")
	tg.node(3, "BadStructure")
	tg.node(4, "Thing")
	tg.node(5, "Thing")
	tg.node(6, "GoodHolder")

	tg.edge(1, 2, "property", "container")
	tg.edge(1, 3, "property", "bad")
	tg.edge(2, 4, "element", "0")
	tg.edge(2, 5, "element", "1")
	tg.edge(3, 4, "property", "x") // element 0 retained by the bad structure
	tg.edge(6, 5, "property", "y") // element 1 retained by GoodHolder
	tg.edge(1, 6, "property", "good")

	f := New([]string{"container"}, []string{"bad"}, "", "")
	leaks, err := f.FindLeaks(tg.g)
	require.NoError(t, err)

	require.Len(t, leaks, 1)
	assert.Equal(t, graph.NodeID(4), leaks[0].Node.ID)
	assert.Equal(t, "container[0]", leaks[0].Locator)
	assert.Equal(t, "container", tg.g.Node(2).ContainerName)
	_ = root
}

func TestFindLeaksLocatorPrefix(t *testing.T) {
	tg := newTestGraph(t)
	tg.node(1, "Root")
	tg.node(2, "Container")
	tg.node(3, "Thing")
	tg.edge(1, 2, "property", "container")
	tg.edge(2, 3, "element", "7")

	f := New([]string{"container"}, nil, "jsframe.", ".stack")
	leaks, err := f.FindLeaks(tg.g)
	require.NoError(t, err)

	// The element's only retainer is the container itself, a bad stop node
	require.Len(t, leaks, 1)
	assert.Equal(t, "jsframe.container[7]", leaks[0].Locator)
}

func TestWindowIsGoodStop(t *testing.T) {
	for _, className := range []string{"Window", "Window / http://example.com"} {
		t.Run(className, func(t *testing.T) {
			tg := newTestGraph(t)
			tg.node(1, "Root")
			tg.node(2, "Container")
			tg.node(3, "Thing")
			tg.node(4, className)
			tg.edge(1, 2, "property", "container")
			tg.edge(2, 3, "element", "0")
			tg.edge(4, 3, "property", "held")

			f := New([]string{"container"}, nil, "", "")
			leaks, err := f.FindLeaks(tg.g)
			require.NoError(t, err)
			assert.Empty(t, leaks)
		})
	}
}

func TestPureCycleElementIsLeak(t *testing.T) {
	tg := newTestGraph(t)
	tg.node(1, "Root")
	tg.node(2, "Container")
	tg.node(3, "A")
	tg.node(4, "B")
	tg.edge(1, 2, "property", "container")
	tg.edge(2, 3, "element", "0")
	// A and B retain each other; the container edge is A's only other
	// retainer. Every branch is a cycle or a bad terminal.
	tg.edge(4, 3, "property", "partner")
	tg.edge(3, 4, "property", "partner")

	f := New([]string{"container"}, nil, "", "")
	leaks, err := f.FindLeaks(tg.g)
	require.NoError(t, err)
	require.Len(t, leaks, 1)
	assert.Equal(t, graph.NodeID(3), leaks[0].Node.ID)
}

func TestContainerNotFound(t *testing.T) {
	tg := newTestGraph(t)
	tg.node(1, "Root")
	tg.node(2, "Container")
	tg.edge(1, 2, "property", "container")

	f := New([]string{"container", "lib.registry.instances"}, nil, "", "")
	_, err := f.FindLeaks(tg.g)
	require.ErrorIs(t, err, ErrContainerNotFound)
	assert.Contains(t, err.Error(), "lib.registry.instances")
}

func TestRetainedByChain(t *testing.T) {
	tg := newTestGraph(t)
	tg.node(1, "Root")
	tg.node(2, "Lib")
	tg.node(3, "Registry")
	tg.node(4, "Instances")
	tg.edge(1, 2, "property", "lib")
	tg.edge(2, 3, "property", "registry")
	tg.edge(3, 4, "property", "instances")

	instances := tg.g.Node(4)
	assert.True(t, retainedByChain(instances, []string{"lib", "registry", "instances"}))
	assert.True(t, retainedByChain(instances, []string{"registry", "instances"}))
	assert.True(t, retainedByChain(instances, []string{"instances"}))
	assert.False(t, retainedByChain(instances, []string{"lib", "other", "instances"}))
	assert.False(t, retainedByChain(instances, []string{"instances", "registry"}))
}

// Once one element is proven clean, the nodes on its proving path become
// stop nodes, so a second element retained through the same chain is cleared
// without walking to the root again.
func TestGoodPathMemoization(t *testing.T) {
	tg := newTestGraph(t)
	tg.node(1, "Root")
	tg.node(2, "Container")
	tg.node(3, "First")
	tg.node(4, "Second")
	tg.node(5, "SharedHolder")
	tg.edge(1, 2, "property", "container")
	tg.edge(2, 3, "element", "0")
	tg.edge(2, 4, "element", "1")
	tg.edge(5, 3, "property", "a")
	tg.edge(5, 4, "property", "b")
	tg.edge(1, 5, "property", "holder")

	f := New([]string{"container"}, nil, "", "")
	leaks, err := f.FindLeaks(tg.g)
	require.NoError(t, err)
	assert.Empty(t, leaks)
}
