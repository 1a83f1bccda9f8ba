// Package depgraph holds the module-level import graph and answers
// reverse-reachability queries: given a module, which modules depend on
// it, directly or transitively.
package depgraph

import (
	"sort"

	"github.com/l3aro/go-testsight/pkg/types"
)

// Graph is an immutable import graph over module identifiers. Edges run
// importer -> imported; queries walk them in reverse.
type Graph struct {
	forward map[types.ModuleID][]types.ModuleID
	reverse map[types.ModuleID][]types.ModuleID
}

// Build constructs a graph from indexed module records. Unresolved
// imports and self-references contribute no edges.
func Build(records []*types.ModuleRecord) *Graph {
	g := &Graph{
		forward: make(map[types.ModuleID][]types.ModuleID, len(records)),
		reverse: make(map[types.ModuleID][]types.ModuleID, len(records)),
	}
	seen := make(map[[2]types.ModuleID]struct{})
	for _, rec := range records {
		for _, ref := range rec.Imports {
			if !ref.IsResolved() || ref.Target == rec.ID {
				continue
			}
			edge := [2]types.ModuleID{rec.ID, ref.Target}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			g.forward[rec.ID] = append(g.forward[rec.ID], ref.Target)
			g.reverse[ref.Target] = append(g.reverse[ref.Target], rec.ID)
		}
	}
	for id := range g.forward {
		sortIDs(g.forward[id])
	}
	for id := range g.reverse {
		sortIDs(g.reverse[id])
	}
	return g
}

// Dependencies returns the modules id imports, sorted.
func (g *Graph) Dependencies(id types.ModuleID) []types.ModuleID {
	return copyIDs(g.forward[id])
}

// DependentsOf returns the modules that import id directly, sorted.
func (g *Graph) DependentsOf(id types.ModuleID) []types.ModuleID {
	return copyIDs(g.reverse[id])
}

// Dependent is a module reached by a reverse walk, with its shortest
// edge distance from the origin.
type Dependent struct {
	ID       types.ModuleID
	Distance int
}

// TraversalOptions bound a reverse walk. Zero values mean unbounded.
type TraversalOptions struct {
	// MaxDepth caps the edge distance explored from the origin.
	MaxDepth int
	// MaxFanout skips expanding any module with more direct dependents
	// than this, so hub modules do not drag in the whole repository.
	MaxFanout int
}

// Traversal is the result of a reverse walk.
type Traversal struct {
	// Dependents holds the reached modules ordered by (distance, ID).
	// The origin itself is not included.
	Dependents []Dependent
	// Capped reports that at least one expansion was cut off by
	// MaxDepth or MaxFanout, so the result may be incomplete.
	Capped bool
	// CappedAt lists the modules whose expansion was skipped, sorted.
	CappedAt []types.ModuleID
}

// ReachableDependents walks the reverse edges breadth-first from origin.
// Cycles terminate through the visited set; every module appears once,
// at its shortest distance.
func (g *Graph) ReachableDependents(origin types.ModuleID, opts TraversalOptions) Traversal {
	var result Traversal
	visited := map[types.ModuleID]struct{}{origin: {}}
	cappedAt := make(map[types.ModuleID]struct{})

	type queued struct {
		id       types.ModuleID
		distance int
	}
	queue := []queued{{origin, 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && current.distance >= opts.MaxDepth {
			if len(g.reverse[current.id]) > 0 {
				cappedAt[current.id] = struct{}{}
			}
			continue
		}
		dependents := g.reverse[current.id]
		if opts.MaxFanout > 0 && len(dependents) > opts.MaxFanout {
			cappedAt[current.id] = struct{}{}
			continue
		}
		for _, dep := range dependents {
			if _, ok := visited[dep]; ok {
				continue
			}
			visited[dep] = struct{}{}
			result.Dependents = append(result.Dependents, Dependent{ID: dep, Distance: current.distance + 1})
			queue = append(queue, queued{dep, current.distance + 1})
		}
	}

	if len(cappedAt) > 0 {
		result.Capped = true
		for id := range cappedAt {
			result.CappedAt = append(result.CappedAt, id)
		}
		sortIDs(result.CappedAt)
	}
	sort.SliceStable(result.Dependents, func(i, j int) bool {
		if result.Dependents[i].Distance != result.Dependents[j].Distance {
			return result.Dependents[i].Distance < result.Dependents[j].Distance
		}
		return result.Dependents[i].ID < result.Dependents[j].ID
	})
	return result
}

func sortIDs(ids []types.ModuleID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func copyIDs(ids []types.ModuleID) []types.ModuleID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]types.ModuleID, len(ids))
	copy(out, ids)
	return out
}
