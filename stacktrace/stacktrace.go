// ABOUTME: Tokenizer for raw JavaScript stack trace strings
// ABOUTME: Detects the VM flavor and extracts ordered function-name frames

// Package stacktrace turns a raw creation-stack string into an ordered list
// of function-name frames. V8 and JavaScriptCore trace formats are
// recognized; anything else is kept line-by-line as-is.
package stacktrace

import (
	"regexp"
	"strings"
)

// VM identifies the JavaScript engine that produced a trace
type VM int

// Known trace flavors
const (
	Unknown VM = iota
	V8
	JSC
)

// String returns the VM's display name
func (vm VM) String() string {
	switch vm {
	case V8:
		return "v8"
	case JSC:
		return "jsc"
	}
	return "unknown"
}

// Stack is a parsed stack trace
type Stack struct {
	VM     VM       // engine flavor the trace was recognized as
	Frames []string // function names, outermost call last
}

var (
	// "    at new someFunction (somefile:12:34)" / "    at somefile:12:34"
	v8Frame = regexp.MustCompile(`^\s*at (.+)$`)
	// "    23   function@somefile:123"
	jscFrame = regexp.MustCompile(`^\s*\d+\s+(.+)$`)
)

// Parse tokenizes a raw trace string. Frames that don't match the detected
// flavor's grammar become the wildcard frame "*".
func Parse(raw string) *Stack {
	if raw == "" {
		return &Stack{VM: Unknown}
	}

	lines := strings.Split(raw, "\n")
	switch {
	case strings.HasPrefix(lines[0], "Error"):
		return &Stack{VM: V8, Frames: parseFrames(lines[1:], parseV8Frame)}
	case strings.HasPrefix(lines[0], "--> Stack trace:"):
		return &Stack{VM: JSC, Frames: parseFrames(lines[1:], parseJSCFrame)}
	}
	return &Stack{VM: Unknown, Frames: lines}
}

func parseFrames(lines []string, parse func(string) string) []string {
	frames := make([]string, len(lines))
	for i, line := range lines {
		frames[i] = parse(line)
	}
	return frames
}

// parseV8Frame extracts the function name from one V8 trace line. The
// source location in trailing parentheses is stripped; a bare location with
// no parentheses is itself the frame name.
func parseV8Frame(line string) string {
	m := v8Frame.FindStringSubmatch(line)
	if m == nil {
		return "*"
	}
	name := m[1]
	if ix := strings.Index(name, " ("); ix >= 0 {
		name = name[:ix]
	}
	return strings.TrimSpace(name)
}

// parseJSCFrame extracts the function name from one JavaScriptCore trace
// line of the form "<depth>   <name>@<location>".
func parseJSCFrame(line string) string {
	m := jscFrame.FindStringSubmatch(line)
	if m == nil {
		return "*"
	}
	name := m[1]
	if ix := strings.Index(name, "@"); ix >= 0 {
		name = name[:ix]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "*"
	}
	return name
}
