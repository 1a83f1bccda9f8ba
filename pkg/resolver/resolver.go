// Package resolver computes the impact set: given a list of changed
// files, the minimal ordered set of test modules that should run.
package resolver

import (
	"path/filepath"
	"sort"

	"github.com/l3aro/go-testsight/pkg/depgraph"
	"github.com/l3aro/go-testsight/pkg/indexer"
	"github.com/l3aro/go-testsight/pkg/tokens"
	"github.com/l3aro/go-testsight/pkg/types"
)

// Options configure a resolver.
type Options struct {
	// Traversal bounds the reverse dependency walk.
	Traversal depgraph.TraversalOptions
	// Tokens configures the fallback matcher.
	Tokens tokens.Config
}

// DefaultOptions returns unbounded traversal with standard token rules.
func DefaultOptions() Options {
	return Options{Tokens: tokens.DefaultConfig()}
}

// Resolver answers impact queries against one built index. It is safe
// for concurrent use; all state is read-only after construction.
type Resolver struct {
	index   *indexer.Index
	graph   *depgraph.Graph
	matcher *tokens.Matcher
	opts    Options
}

// New builds a resolver over the index: the dependency graph from all
// records, the fallback matcher from the test records.
func New(idx *indexer.Index, opts Options) *Resolver {
	return &Resolver{
		index:   idx,
		graph:   depgraph.Build(idx.Records()),
		matcher: tokens.NewMatcher(idx.TestModules(), opts.Tokens),
		opts:    opts,
	}
}

// Resolve maps changed file paths (root-relative) to impacted tests.
//
// A changed file that is itself a test enters the set directly. For the
// rest, the reverse import graph is walked and every test module reached
// is attributed statically, at its shortest distance from any changed
// module. A changed file whose walk reaches no test at all falls back to
// token matching. When a test is found both ways the static attribution
// wins and the token score is kept for diagnostics.
//
// An empty change set resolves to an empty result: no changes, no tests.
func (r *Resolver) Resolve(changed []string) *types.ImpactResult {
	result := &types.ImpactResult{ParseFailures: len(r.index.ParseFailures())}
	if len(changed) == 0 {
		return result
	}

	type entry struct {
		rec      *types.ModuleRecord
		attr     types.Attribution
		distance int
		score    int
	}
	impacted := make(map[types.ModuleID]*entry)
	warned := make(map[types.Warning]struct{})
	warn := func(kind types.WarningKind, path string) {
		w := types.Warning{Kind: kind, Path: path}
		if _, dup := warned[w]; dup {
			return
		}
		warned[w] = struct{}{}
		result.Warnings = append(result.Warnings, w)
	}

	cappedAt := make(map[types.ModuleID]struct{})
	// Paths that found no test statically and are not tests themselves;
	// these get the fallback pass.
	var fallbackPaths []string

	for _, raw := range changed {
		path := filepath.ToSlash(raw)
		rec, ok := r.index.ByPath(path)
		if !ok {
			warn(types.WarnUnresolvedPath, path)
			// Not indexed, so no graph position; tokens are all we have.
			fallbackPaths = append(fallbackPaths, path)
			continue
		}
		if rec.ParseFailed {
			warn(types.WarnParseFailure, path)
		}

		if rec.IsTest {
			if prev, ok := impacted[rec.ID]; !ok || prev.attr != types.AttributionDirect {
				impacted[rec.ID] = &entry{rec: rec, attr: types.AttributionDirect}
			}
			continue
		}

		walk := r.graph.ReachableDependents(rec.ID, r.opts.Traversal)
		if walk.Capped {
			for _, id := range walk.CappedAt {
				cappedAt[id] = struct{}{}
			}
		}
		foundTest := false
		for _, dep := range walk.Dependents {
			depRec, ok := r.index.Lookup(dep.ID)
			if !ok || !depRec.IsTest {
				continue
			}
			foundTest = true
			prev, seen := impacted[dep.ID]
			switch {
			case !seen:
				impacted[dep.ID] = &entry{rec: depRec, attr: types.AttributionStatic, distance: dep.Distance}
			case prev.attr == types.AttributionFallback:
				prev.attr = types.AttributionStatic
				prev.distance = dep.Distance
			case prev.attr == types.AttributionStatic && dep.Distance < prev.distance:
				prev.distance = dep.Distance
			}
		}
		if !foundTest {
			fallbackPaths = append(fallbackPaths, path)
		}
	}

	for _, path := range fallbackPaths {
		for _, match := range r.matcher.Match(path) {
			prev, seen := impacted[match.ID]
			switch {
			case !seen:
				rec, ok := r.index.Lookup(match.ID)
				if !ok {
					continue
				}
				impacted[match.ID] = &entry{rec: rec, attr: types.AttributionFallback, score: match.Score}
			case prev.attr == types.AttributionDirect:
				// Direct hits carry no score.
			default:
				// Static wins over fallback, but the score is useful
				// diagnostics either way.
				if match.Score > prev.score {
					prev.score = match.Score
				}
			}
		}
	}

	for _, e := range impacted {
		result.Impacted = append(result.Impacted, types.ImpactedTest{
			ID:          e.rec.ID,
			Path:        e.rec.Path,
			Attribution: e.attr,
			Distance:    e.distance,
			Score:       e.score,
		})
	}
	sort.Slice(result.Impacted, func(i, j int) bool {
		a, b := result.Impacted[i], result.Impacted[j]
		if ra, rb := attributionRank(a.Attribution), attributionRank(b.Attribution); ra != rb {
			return ra < rb
		}
		switch a.Attribution {
		case types.AttributionStatic:
			if a.Distance != b.Distance {
				return a.Distance < b.Distance
			}
		case types.AttributionFallback:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		return a.Path < b.Path
	})
	sort.Slice(result.Warnings, func(i, j int) bool {
		if result.Warnings[i].Kind != result.Warnings[j].Kind {
			return result.Warnings[i].Kind < result.Warnings[j].Kind
		}
		return result.Warnings[i].Path < result.Warnings[j].Path
	})

	if len(cappedAt) > 0 {
		result.Capped = true
		for id := range cappedAt {
			result.CappedAt = append(result.CappedAt, id)
		}
		sort.Slice(result.CappedAt, func(i, j int) bool { return result.CappedAt[i] < result.CappedAt[j] })
	}
	return result
}

func attributionRank(a types.Attribution) int {
	switch a {
	case types.AttributionDirect:
		return 0
	case types.AttributionStatic:
		return 1
	default:
		return 2
	}
}
