// ABOUTME: Leak candidate representation and creation-stack resolution
// ABOUTME: Resolves stacks from the graph or through the remote inspector

package leakfinder

import (
	"context"
	"fmt"
	"strings"

	"github.com/prateek/leaklens/graph"
	"github.com/prateek/leaklens/stacktrace"
)

// Evaluator evaluates an expression in the inspected runtime and returns the
// result as a string. It is the slice of the inspection client the analyzer
// needs for fetching untruncated stack strings.
type Evaluator interface {
	EvaluateExpression(ctx context.Context, expr string) (string, error)
}

// Candidate is an object classified as leaking
type Candidate struct {
	// Node is the leaked heap object
	Node *graph.Node

	// Locator is a runtime-evaluable expression reaching the object,
	// e.g. `goog.Disposable.instances_[3]`
	Locator string

	// Stack is the object's creation stack. Nil until ResolveStack runs, and
	// nil afterward when no stack could be found.
	Stack *stacktrace.Stack

	suffix string
}

// ResolveStack fetches and tokenizes the candidate's creation stack.
//
// Snapshots store only a prefix of long strings, so when client is non-nil
// the stack property is re-evaluated in the target runtime through it.
// Without a client the possibly truncated value stored in the graph is used
// instead. With no stack-suffix configured there is no stack information at
// all and an empty stack is recorded.
func (c *Candidate) ResolveStack(ctx context.Context, client Evaluator) error {
	if c.suffix == "" {
		c.Stack = &stacktrace.Stack{}
		return nil
	}

	var raw string
	if client != nil {
		var err error
		raw, err = client.EvaluateExpression(ctx, c.Locator+c.suffix)
		if err != nil {
			return fmt.Errorf("evaluating %s%s: %w", c.Locator, c.suffix, err)
		}
	} else {
		property := strings.TrimPrefix(c.suffix, ".")
		for _, e := range c.Node.Outgoing {
			if e.Label == property {
				raw = e.To.StringValue
				break
			}
		}
	}

	if raw != "" {
		c.Stack = stacktrace.Parse(raw)
	}
	return nil
}

// String renders the candidate for diagnostics
func (c *Candidate) String() string {
	var stack string
	if c.Stack != nil {
		stack = "Stack:\n  " + strings.Join(c.Stack.Frames, "\n  ")
	}
	return fmt.Sprintf("Leak\nClass: %s\nObject: %s\n%s", c.Node.ClassName, c.Locator, stack)
}
