// Package types defines the core data structures shared by the indexer,
// dependency graph, and impact resolver.
package types

// ModuleID is the canonical dotted identifier of one source file
// (e.g. "billing.service" for src/billing/service.py). It is derived
// deterministically from the root-relative path and is stable across runs
// as long as the path does not change.
type ModuleID string

// ImportRef is a single import reference extracted from a module.
// A resolved reference points at a module inside the indexed tree.
// An unresolved reference keeps the raw dotted token (external packages,
// dynamic imports, anything static analysis could not map to an internal
// file). Only resolved references become graph edges; unresolved tokens
// feed the fallback matcher.
type ImportRef struct {
	Target ModuleID `json:"target,omitempty" msgpack:"target"`
	Raw    string   `json:"raw,omitempty" msgpack:"raw"`
}

// IsResolved reports whether the reference points at an internal module.
func (r ImportRef) IsResolved() bool {
	return r.Target != ""
}

// ModuleRecord describes one indexed source file. Records are immutable
// for the duration of a run; the dependency graph is built strictly from
// the full record set.
type ModuleRecord struct {
	ID          ModuleID    `json:"id" msgpack:"id"`
	Path        string      `json:"path" msgpack:"path"` // root-relative, slash-separated
	AbsPath     string      `json:"-" msgpack:"abs_path"`
	IsPackage   bool        `json:"is_package,omitempty" msgpack:"is_package"` // __init__.py
	IsTest      bool        `json:"is_test,omitempty" msgpack:"is_test"`
	ParseFailed bool        `json:"parse_failed,omitempty" msgpack:"parse_failed"`
	Imports     []ImportRef `json:"imports,omitempty" msgpack:"imports"`
}

// Attribution says how a test module entered the impact set.
type Attribution string

const (
	// AttributionDirect marks a changed file that is itself a test module.
	AttributionDirect Attribution = "direct"
	// AttributionStatic marks a test reached through graph traversal.
	AttributionStatic Attribution = "static"
	// AttributionFallback marks a test reached through token scoring.
	AttributionFallback Attribution = "fallback"
)

// ImpactedTest is one entry of the impact set.
type ImpactedTest struct {
	ID          ModuleID    `json:"module"`
	Path        string      `json:"path"`
	Attribution Attribution `json:"attribution"`
	// Distance is the BFS distance from the nearest changed module.
	// Zero for direct entries, unset for pure fallback matches.
	Distance int `json:"distance,omitempty"`
	// Score is the token similarity score. It is populated for fallback
	// entries and, for diagnostics, on static entries that a fallback
	// match also reached.
	Score int `json:"score,omitempty"`
}

// WarningKind classifies a recoverable per-file failure.
type WarningKind string

const (
	// WarnUnresolvedPath flags a changed file outside the indexed root
	// or missing from the index.
	WarnUnresolvedPath WarningKind = "unresolved-path"
	// WarnParseFailure flags a source file that could not be analyzed;
	// it was indexed with an empty dependency set.
	WarnParseFailure WarningKind = "parse-failure"
)

// Warning is a recoverable diagnostic collected during a resolve run.
type Warning struct {
	Kind WarningKind `json:"kind"`
	Path string      `json:"path"`
}

// ImpactResult is the outcome of a single resolve call: the ordered
// impact set plus the diagnostics a caller needs to render a run summary.
type ImpactResult struct {
	Impacted []ImpactedTest `json:"impacted"`
	Warnings []Warning      `json:"warnings,omitempty"`
	// Capped is set when a traversal cap (depth or fan-out) stopped the
	// walk early; CappedAt lists the modules whose expansion was skipped.
	Capped   bool       `json:"capped,omitempty"`
	CappedAt []ModuleID `json:"capped_at,omitempty"`
	// ParseFailures counts the indexed files that could not be analyzed,
	// whether or not they appear in the change set. A nonzero count means
	// the graph may be missing edges.
	ParseFailures int `json:"parse_failures,omitempty"`
}

// Paths returns the impacted test paths in result order.
func (r *ImpactResult) Paths() []string {
	paths := make([]string, 0, len(r.Impacted))
	for _, t := range r.Impacted {
		paths = append(paths, t.Path)
	}
	return paths
}
