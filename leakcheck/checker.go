// ABOUTME: End-to-end leak check orchestration
// ABOUTME: Snapshots, analyzes, resolves stacks, and matches suppressions

// Package leakcheck ties the analysis pipeline together: given a leak
// definition it takes a heap snapshot through an inspection client, runs the
// retention analyzer, resolves creation stacks, and partitions the findings
// into suppressed and new leaks.
package leakcheck

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/prateek/leaklens/inspector"
	"github.com/prateek/leaklens/leakfinder"
	"github.com/prateek/leaklens/snapshot"
	"github.com/prateek/leaklens/suppressions"
)

// stackResolveConcurrency bounds the parallel expression evaluations used to
// fetch creation stacks. The round trips are independent; report order stays
// declaration order regardless.
const stackResolveConcurrency = 4

// Checker runs leak checks for one leak definition
type Checker struct {
	def   LeakDefinition
	log   *logrus.Logger
	supps []*suppressions.Suppression
}

// NewChecker creates a Checker and loads the definition's suppression file.
// A suppression file that fails to load is logged as a warning and the
// check proceeds with no suppressions, so leak detection still runs.
func NewChecker(def LeakDefinition, log *logrus.Logger) *Checker {
	c := &Checker{def: def, log: log}
	if def.SuppressionFile == "" {
		return c
	}

	log.WithField("file", def.SuppressionFile).Info("Reading suppressions")
	supps, err := suppressions.ReadSuppressionsFromFile(def.SuppressionFile)
	if err != nil {
		log.WithError(err).Warn("Could not load suppressions")
		return c
	}
	c.supps = supps
	return c
}

// Run performs all steps of a leak check: take a snapshot, parse it, find
// leaks, resolve their creation stacks, and match them against the loaded
// suppressions.
func (c *Checker) Run(ctx context.Context, client inspector.Client) (*Report, error) {
	leaks, err := c.findLeaks(ctx, client)
	if err != nil {
		return nil, err
	}
	if len(leaks) == 0 {
		c.log.Info("No leaks found")
		return &Report{}, nil
	}

	c.log.WithField("count", len(leaks)).Info("Scanning for new leaks")
	return c.matchSuppressions(leaks), nil
}

// findLeaks takes a snapshot, analyzes it, and resolves creation stacks
func (c *Checker) findLeaks(ctx context.Context, client inspector.Client) ([]*leakfinder.Candidate, error) {
	c.log.Info("Taking heap snapshot")
	raw, err := client.HeapSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Info("Parsing heap snapshot")
	g, err := snapshot.Parse(raw)
	if err != nil {
		c.log.WithError(err).Error("Error parsing snapshot")
		return nil, err
	}

	c.log.Info("Analyzing heap snapshot")
	finder := leakfinder.New(c.def.Containers, c.def.BadNodes,
		c.def.StackTracePrefix, c.def.StackTraceSuffix)
	leaks, err := finder.FindLeaks(g)
	if err != nil {
		c.log.WithError(err).Error("Error analyzing snapshot")
		return nil, err
	}

	c.log.Info("Retrieving creation stack traces for leaking objects")
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(stackResolveConcurrency)
	for _, leak := range leaks {
		leak := leak
		grp.Go(func() error {
			return leak.ResolveStack(gctx, client)
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return leaks, nil
}

// matchSuppressions partitions leaks into suppressed and new ones.
//
// Each leak is tested against the loaded suppressions in file order, first
// match wins. Unmatched leaks are then tested against suppressions built
// from the earlier unmatched leaks of this run (exact class name and
// frames), so a leak occurring many times is reported once with a count.
// Leaks with no resolved stack at all cannot be matched and are reported
// separately.
func (c *Checker) matchSuppressions(leaks []*leakfinder.Candidate) *Report {
	report := &Report{}
	hits := make([]int, len(c.supps))

	for _, leak := range leaks {
		if leak.Stack == nil {
			c.log.WithField("class", leak.Node.ClassName).
				Error("Found leak without a creation stack")
			report.NoStack = append(report.NoStack, leak)
			continue
		}

		matched := false
		for i, supp := range c.supps {
			if supp.Match(leak.Node.ClassName, leak.Stack.Frames) {
				hits[i]++
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		for _, grp := range report.NewLeaks {
			if grp.suppression.Match(leak.Node.ClassName, leak.Stack.Frames) {
				grp.Count++
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		report.NewLeaks = append(report.NewLeaks, &LeakGroup{
			Leak:        leak,
			Count:       1,
			suppression: suppressions.New("", leak.Node.ClassName, leak.Stack.Frames),
		})
	}

	for i, count := range hits {
		if count > 0 {
			report.Matched = append(report.Matched, SuppressionHit{
				Suppression: c.supps[i],
				Count:       count,
			})
		}
	}
	return report
}
