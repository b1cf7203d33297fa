// ABOUTME: Valgrind-style suppressions for leak reports
// ABOUTME: Compiles wildcard and ellipsis stack patterns into regular expressions

// Package suppressions filters known leak reports using stack patterns.
//
// The file format is modelled after the suppression format used by
// valgrind. A suppression names the leaking class and a sequence of stack
// frames; "*" wildcards characters within a frame and a frame consisting of
// "..." wildcards zero or more whole frames:
//
//	{
//	  <short human-readable description of the error>
//	  name of leaking class
//	  frame_name
//	  wildcarded_fram*_name
//	  # an ellipsis wildcards zero or more frames in a stack.
//	  ...
//	  another_frame
//	}
package suppressions

import (
	"regexp"
	"strings"
)

// ellipsis wildcards zero or more whole frames in stack position
const ellipsis = "..."

// Suppression is a single compiled suppression rule
type Suppression struct {
	Description string // free-text description of the suppressed leak
	ClassName   string // wildcard pattern for the leaking object's class

	frames []string
	re     *regexp.Regexp
}

// New builds a Suppression and compiles its matcher. A suppression with no
// frames never matches anything; it exists as a placeholder for dynamically
// recording already-reported leaks.
func New(description, className string, frames []string) *Suppression {
	s := &Suppression{
		Description: description,
		ClassName:   className,
		frames:      append([]string(nil), frames...),
	}
	s.re = compile(className, s.frames)
	return s
}

// Frames returns the suppression's frame patterns
func (s *Suppression) Frames() []string {
	return append([]string(nil), s.frames...)
}

// compile turns the class pattern plus frame patterns into one multi-line
// regexp. The class name is treated as just another frame, so it may carry
// "*" wildcards; the ellipsis is only special in stack-frame position, never
// as the first token.
func compile(className string, frames []string) *regexp.Regexp {
	tokens := append([]string{className}, frames...)

	var b strings.Builder
	b.WriteString(`\A`)
	for i, tok := range tokens {
		if tok == ellipsis && i > 0 {
			b.WriteString(`(.*\n)*`)
			continue
		}
		for j, part := range strings.Split(tok, "*") {
			if j > 0 {
				b.WriteString(`.*`)
			}
			b.WriteString(regexp.QuoteMeta(part))
		}
		b.WriteString(`\n`)
	}
	return regexp.MustCompile(b.String())
}

// Match tests whether the suppression covers a leak of the given class with
// the given stack frames. The compiled pattern is anchored at the start of
// the joined text only; trailing frames beyond the pattern are not examined.
// An empty suppression matches nothing.
func (s *Suppression) Match(className string, frames []string) bool {
	if len(s.frames) == 0 {
		return false
	}
	lines := append([]string{className}, frames...)
	return s.re.MatchString(strings.Join(lines, "\n") + "\n")
}
