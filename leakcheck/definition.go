// ABOUTME: Leak definition configuration and the built-in definition registry
// ABOUTME: Describes which containers and bad retainers identify a class of leaks

package leakcheck

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownDefinition marks a request for a predefined leak definition that
// does not exist.
var ErrUnknownDefinition = errors.New("unknown leak definition")

// LeakDefinition holds the configuration needed to find one class of leaks.
//
// In a garbage collected language the usual definition of a memory leak
// does not apply: once all pointers to an object are dropped, the memory is
// eventually reclaimed. Instead an object is defined as leaking if all its
// remaining retainers are unintentional: it sits in one of the Containers
// and every other retaining path goes through one of the BadNodes.
type LeakDefinition struct {
	// Description is a human readable description of this definition
	Description string

	// SuppressionFile names the suppression file to load, empty for none
	SuppressionFile string

	// Containers are dotted property chains naming the collections whose
	// elements are examined as potential leaks
	Containers []string

	// BadNodes are dotted property chains naming data structures that make
	// a retaining path unintentional
	BadNodes []string

	// StackTracePrefix is prepended to container names when building
	// locator expressions, e.g. "jsframe."
	StackTracePrefix string

	// StackTraceSuffix names the member variable holding an object's
	// creation stack, e.g. ".creationStack"
	StackTraceSuffix string
}

// Default configurations for Closure based apps.
var predefined = map[string]LeakDefinition{
	"closure-disposable": {
		Description: "Detects leaking objects inheriting from goog.Disposable. Remember to set" +
			" goog.Disposable.MONITORING_MODE to" +
			" goog.Disposable.MonitoringMode.INTERACTIVE, and run your application" +
			" with uncompiled JavaScript.",
		SuppressionFile:  "closure-disposable-suppressions.txt",
		Containers:       []string{"goog.Disposable.instances_"},
		BadNodes:         []string{"goog.events"},
		StackTraceSuffix: ".creationStack",
	},
	"closure-event-listeners": {
		Description: "Detects leaking objects goog.events.Listener. Remember to set" +
			" goog.events.Listener.ENABLE_MONITORING to true, and run your application" +
			" with uncompiled JavaScript.",
		SuppressionFile:  "closure-event-listeners-suppressions.txt",
		Containers:       []string{"goog.events.listeners_"},
		BadNodes:         []string{"goog.events"},
		StackTraceSuffix: ".creationStack",
	},
}

// Definition looks up a predefined leak definition by name
func Definition(name string) (LeakDefinition, error) {
	def, ok := predefined[name]
	if !ok {
		return LeakDefinition{}, fmt.Errorf("%w: %q", ErrUnknownDefinition, name)
	}
	return def, nil
}

// DefinitionNames lists the predefined definitions in sorted order
func DefinitionNames() []string {
	names := make([]string, 0, len(predefined))
	for name := range predefined {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
