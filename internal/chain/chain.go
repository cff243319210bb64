// Package chain checks a subject's whole version history. The evolution
// engine compares exactly two schemas; transitive compatibility levels need
// the newest version compared against every earlier one, which happens here.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"schemagate/internal/evolution"
	"schemagate/internal/registry"
	"schemagate/internal/schema"
)

// DefaultParallelism bounds concurrent pair analyses when Options leaves it unset.
const DefaultParallelism = 4

// Version is one labelled schema in a history
type Version struct {
	Label string
	Node  schema.Node
	// Doc is the parsed file when the version came from LoadSubject
	Doc *schema.Document
}

// Options controls a chain check
type Options struct {
	Parallelism int
	Logger      *slog.Logger
}

// PairResult is the verdict for one (from, to) pair
type PairResult struct {
	From       string                       `json:"from"`
	To         string                       `json:"to"`
	Compatible bool                         `json:"compatible"`
	Violations []evolution.Change           `json:"violations,omitempty"`
	Analysis   *evolution.EvolutionAnalysis `json:"analysis"`
}

// Report is the outcome of checking a version history against a level
type Report struct {
	Level      evolution.CompatibilityLevel `json:"level"`
	Latest     string                       `json:"latest,omitempty"`
	Pairs      []PairResult                 `json:"pairs"`
	Compatible bool                         `json:"compatible"`
}

// Failed returns the pairs that did not pass.
func (r *Report) Failed() []PairResult {
	var out []PairResult
	for _, p := range r.Pairs {
		if !p.Compatible {
			out = append(out, p)
		}
	}
	return out
}

type pair struct{ from, to Version }

// Check verifies the newest version against the history for level. With a
// transitive level the newest version is compared against every earlier
// version; otherwise only against its predecessor. Pairs run in parallel
// and are reported oldest first.
func Check(ctx context.Context, versions []Version, level evolution.CompatibilityLevel, opts Options) (*Report, error) {
	ordered := Order(versions)
	report := &Report{Level: level, Pairs: []PairResult{}, Compatible: true}
	if len(ordered) == 0 {
		return report, nil
	}

	latest := ordered[len(ordered)-1]
	report.Latest = latest.Label

	var pairs []pair
	earlier := ordered[:len(ordered)-1]
	if !level.Transitive() && len(earlier) > 0 {
		earlier = earlier[len(earlier)-1:]
	}
	for _, v := range earlier {
		pairs = append(pairs, pair{from: v, to: latest})
	}

	return run(ctx, report, pairs, opts)
}

// CheckAll verifies every consecutive pair of the history against the base
// of level, as a full audit.
func CheckAll(ctx context.Context, versions []Version, level evolution.CompatibilityLevel, opts Options) (*Report, error) {
	ordered := Order(versions)
	report := &Report{Level: level, Pairs: []PairResult{}, Compatible: true}
	if len(ordered) == 0 {
		return report, nil
	}
	report.Latest = ordered[len(ordered)-1].Label

	var pairs []pair
	for i := 1; i < len(ordered); i++ {
		pairs = append(pairs, pair{from: ordered[i-1], to: ordered[i]})
	}
	return run(ctx, report, pairs, opts)
}

func run(ctx context.Context, report *Report, pairs []pair, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := opts.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}
	base := report.Level.Base()

	results := make([]PairResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a := evolution.AnalyzeEvolution(p.from.Node, p.to.Node)
			check := evolution.Check(a.Changes, base)
			results[i] = PairResult{
				From:       p.from.Label,
				To:         p.to.Label,
				Compatible: check.Compatible,
				Violations: check.Violations,
				Analysis:   a,
			}
			logger.Debug("Checked version pair",
				"from", p.from.Label,
				"to", p.to.Label,
				"level", base,
				"compatible", check.Compatible,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("chain check interrupted: %w", err)
	}

	report.Pairs = results
	for _, r := range results {
		if !r.Compatible {
			report.Compatible = false
		}
	}
	return report, nil
}

// Order returns versions sorted by semantic version, oldest first. Labels
// without a "v" prefix are accepted.
func Order(versions []Version) []Version {
	out := slices.Clone(versions)
	slices.SortStableFunc(out, func(a, b Version) int {
		return semver.Compare(registry.NormalizeVersion(a.Label), registry.NormalizeVersion(b.Label))
	})
	return out
}

// LoadSubject parses every version of s. Relative paths resolve against root.
func LoadSubject(root string, s *registry.Subject) ([]Version, error) {
	out := make([]Version, 0, len(s.Versions))
	for _, v := range s.Ordered() {
		doc, err := registry.LoadVersion(root, v)
		if err != nil {
			return nil, fmt.Errorf("subject %s version %s: %w", s.Name, v.Version, err)
		}
		out = append(out, Version{Label: v.Version, Node: doc.Root, Doc: doc})
	}
	return out, nil
}
