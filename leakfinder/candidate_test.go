// ABOUTME: Tests for leak candidate stack resolution
// ABOUTME: Covers graph-stored stacks, client evaluation, and missing stacks

package leakfinder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/leaklens/graph"
	"github.com/prateek/leaklens/stacktrace"
)

// fakeEvaluator returns canned evaluation results keyed by expression
type fakeEvaluator struct {
	results map[string]string
	err     error
	calls   []string
}

func (f *fakeEvaluator) EvaluateExpression(_ context.Context, expr string) (string, error) {
	f.calls = append(f.calls, expr)
	if f.err != nil {
		return "", f.err
	}
	return f.results[expr], nil
}

func TestResolveStackWithoutSuffix(t *testing.T) {
	c := &Candidate{Node: &graph.Node{ID: 1}}

	require.NoError(t, c.ResolveStack(context.Background(), nil))
	require.NotNil(t, c.Stack)
	assert.Empty(t, c.Stack.Frames)
}

func TestResolveStackFromGraph(t *testing.T) {
	tg := newTestGraph(t)
	obj := tg.node(1, "Thing")
	stackNode := &graph.Node{ID: 2, Kind: "string", ClassName: "(string)",
		StringValue: "Error\n    at makeThing (app.js:1:1)"}
	tg.g.AddNode(stackNode)
	tg.edge(1, 2, "property", "creationStack")

	c := &Candidate{Node: obj, Locator: "container[0]", suffix: ".creationStack"}
	require.NoError(t, c.ResolveStack(context.Background(), nil))

	require.NotNil(t, c.Stack)
	assert.Equal(t, stacktrace.V8, c.Stack.VM)
	assert.Equal(t, []string{"makeThing"}, c.Stack.Frames)
}

// Snapshots truncate long strings, so with a client available the stack is
// re-evaluated in the target runtime instead of read from the graph.
func TestResolveStackViaClient(t *testing.T) {
	eval := &fakeEvaluator{results: map[string]string{
		"container[0].creationStack": "Error\n    at fullStack (app.js:2:2)",
	}}

	c := &Candidate{Node: &graph.Node{ID: 1}, Locator: "container[0]", suffix: ".creationStack"}
	require.NoError(t, c.ResolveStack(context.Background(), eval))

	assert.Equal(t, []string{"container[0].creationStack"}, eval.calls)
	require.NotNil(t, c.Stack)
	assert.Equal(t, []string{"fullStack"}, c.Stack.Frames)
}

func TestResolveStackClientError(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("target gone")}
	c := &Candidate{Node: &graph.Node{ID: 1}, Locator: "x[0]", suffix: ".stack"}

	err := c.ResolveStack(context.Background(), eval)
	require.Error(t, err)
	assert.Nil(t, c.Stack)
}

func TestResolveStackMissingProperty(t *testing.T) {
	tg := newTestGraph(t)
	obj := tg.node(1, "Thing")

	c := &Candidate{Node: obj, Locator: "x[0]", suffix: ".creationStack"}
	require.NoError(t, c.ResolveStack(context.Background(), nil))
	assert.Nil(t, c.Stack)
}

func TestCandidateString(t *testing.T) {
	c := &Candidate{
		Node:    &graph.Node{ID: 1, ClassName: "Thing"},
		Locator: "container[0]",
		Stack:   &stacktrace.Stack{VM: stacktrace.V8, Frames: []string{"a", "b"}},
	}
	s := c.String()
	assert.Contains(t, s, "Class: Thing")
	assert.Contains(t, s, "Object: container[0]")
	assert.Contains(t, s, "  a\n  b")
}
