// ABOUTME: Flag values and leak definition assembly
// ABOUTME: Merges a predefined definition with explicit overrides

package main

import (
	"errors"

	"github.com/prateek/leaklens/leakcheck"
)

// options holds the parsed command line flags
type options struct {
	definition   string
	suppressions string
	containers   []string
	badNodes     []string
	prefix       string
	suffix       string
	endpoint     string
	verbose      bool
}

// errNoContainers is returned when neither a definition nor containers were
// given; without containers there is nothing to examine.
var errNoContainers = errors.New("need to specify at least either --definition or --container")

// leakDefinition builds the effective leak definition: the predefined one
// when named, with any explicitly given flags overriding its fields.
func (o *options) leakDefinition() (leakcheck.LeakDefinition, error) {
	var def leakcheck.LeakDefinition
	if o.definition != "" {
		var err error
		if def, err = leakcheck.Definition(o.definition); err != nil {
			return leakcheck.LeakDefinition{}, err
		}
	}

	if o.suppressions != "" {
		def.SuppressionFile = o.suppressions
	}
	if len(o.containers) > 0 {
		def.Containers = o.containers
	}
	if len(o.badNodes) > 0 {
		def.BadNodes = o.badNodes
	}
	if o.prefix != "" {
		def.StackTracePrefix = o.prefix
	}
	if o.suffix != "" {
		def.StackTraceSuffix = o.suffix
	}

	if len(def.Containers) == 0 {
		return leakcheck.LeakDefinition{}, errNoContainers
	}
	return def, nil
}
