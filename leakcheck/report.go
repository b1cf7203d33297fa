// ABOUTME: Leak check result aggregation and text rendering
// ABOUTME: Groups findings into matched suppressions, new leaks, and diagnostics

package leakcheck

import (
	"fmt"
	"io"

	"github.com/prateek/leaklens/leakfinder"
	"github.com/prateek/leaklens/suppressions"
)

// SuppressionHit records how many leaks a loaded suppression covered
type SuppressionHit struct {
	Suppression *suppressions.Suppression
	Count       int
}

// LeakGroup is one new leak signature and how often it occurred
type LeakGroup struct {
	// Leak is the first candidate seen with this signature
	Leak *leakfinder.Candidate

	// Count is the number of candidates sharing the signature
	Count int

	// suppression matches further leaks with the exact same class and
	// frames, collapsing repeats into this group
	suppression *suppressions.Suppression
}

// Report is the outcome of one leak check run
type Report struct {
	// Matched lists loaded suppressions that covered at least one leak, in
	// suppression file order
	Matched []SuppressionHit

	// NewLeaks lists unsuppressed leak groups in container declaration
	// order of their first occurrence
	NewLeaks []*LeakGroup

	// NoStack lists leaks whose creation stack could not be resolved; they
	// are excluded from suppression matching
	NoStack []*leakfinder.Candidate
}

// NumNewLeaks returns the number of distinct new leak signatures
func (r *Report) NumNewLeaks() int {
	return len(r.NewLeaks)
}

// Write renders the report as text
func (r *Report) Write(w io.Writer) error {
	if len(r.Matched) > 0 {
		fmt.Fprintln(w, "The following suppressions matched found leaks:")
		for _, hit := range r.Matched {
			fmt.Fprintf(w, " %d %s\n", hit.Count, hit.Suppression.Description)
		}
		fmt.Fprintln(w)
	}

	if len(r.NewLeaks) > 0 {
		fmt.Fprintln(w, "New memory leaks found:")
		for _, grp := range r.NewLeaks {
			fmt.Fprintf(w, "Leak: %d %s\n", grp.Count, grp.Leak.Node.ClassName)
			fmt.Fprintln(w, "allocated at:")
			for _, frame := range grp.Leak.Stack.Frames {
				fmt.Fprintf(w, "  %s\n", frame)
			}
		}
	}

	if len(r.NoStack) > 0 {
		fmt.Fprintln(w, "Leaks without a creation stack:")
		for _, leak := range r.NoStack {
			fmt.Fprintf(w, "  %s (%s)\n", leak.Node.ClassName, leak.Locator)
		}
	}
	return nil
}
