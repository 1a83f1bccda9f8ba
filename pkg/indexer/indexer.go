// Package indexer builds a module index for a Python repository: every
// source file mapped to a dotted module identifier, with its import
// statements resolved against the rest of the index.
package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/l3aro/go-testsight/internal/scanner"
	"github.com/l3aro/go-testsight/pkg/pyimports"
	"github.com/l3aro/go-testsight/pkg/types"
)

// Cache stores and retrieves previously built record sets keyed by a
// fingerprint of the scanned tree.
type Cache interface {
	Load(key string) ([]*types.ModuleRecord, bool)
	Store(key string, records []*types.ModuleRecord) error
}

// Config controls how the index is built.
type Config struct {
	// Root is the repository root directory.
	Root string
	// SourceRoots are top-level directories stripped from module names,
	// so "src/billing/invoice.py" indexes as "billing.invoice".
	SourceRoots []string
	// Suffixes are the file extensions treated as Python sources.
	Suffixes []string
	// ExcludeDirs are directory names skipped during the walk.
	ExcludeDirs []string
	// IgnoreFile names per-directory ignore files (gitignore syntax).
	IgnoreFile string
	// Naming classifies files as test modules.
	Naming NamingRules
	// Workers bounds parse concurrency; 0 means GOMAXPROCS.
	Workers int
	// Cache, when set, short-circuits parsing for unchanged trees.
	Cache Cache
}

// DefaultConfig returns a config for the given root with the standard
// conventions: "src" layout, .py files, common junk directories excluded.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		SourceRoots: []string{"src"},
		Suffixes:    []string{".py"},
		ExcludeDirs: scanner.DefaultExcludes,
		IgnoreFile:  ".gtsignore",
		Naming:      DefaultNamingRules(),
	}
}

// Index is the built module index. It is immutable after Build.
type Index struct {
	modules map[types.ModuleID]*types.ModuleRecord
	byPath  map[string]types.ModuleID
}

// Build scans the tree, parses every source file and resolves imports.
func Build(cfg Config) (*Index, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}

	opts := scanner.Options{
		Suffixes:       cfg.Suffixes,
		ExcludeDirs:    cfg.ExcludeDirs,
		IgnoreFileName: cfg.IgnoreFile,
		SkipHidden:     true,
	}
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = []string{".py"}
	}
	files, err := scanner.New(opts).Scan(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", cfg.Root, err)
	}

	key := fingerprint(files)
	if cfg.Cache != nil {
		if records, ok := cfg.Cache.Load(key); ok {
			return FromRecords(records), nil
		}
	}

	records := collectRecords(cfg, files)
	parsed := parseAll(cfg, records)

	idx := FromRecords(records)
	idx.resolveImports(parsed)

	if cfg.Cache != nil {
		if err := cfg.Cache.Store(key, idx.Records()); err != nil {
			return nil, fmt.Errorf("storing index cache: %w", err)
		}
	}
	return idx, nil
}

// FromRecords rebuilds an Index from a flat record list, e.g. one loaded
// from a cache snapshot. Imports are taken as already resolved.
func FromRecords(records []*types.ModuleRecord) *Index {
	idx := &Index{
		modules: make(map[types.ModuleID]*types.ModuleRecord, len(records)),
		byPath:  make(map[string]types.ModuleID, len(records)),
	}
	for _, rec := range records {
		idx.modules[rec.ID] = rec
		idx.byPath[rec.Path] = rec.ID
		if rec.AbsPath != "" {
			idx.byPath[filepath.ToSlash(rec.AbsPath)] = rec.ID
		}
	}
	return idx
}

// Lookup returns the record for a module identifier.
func (idx *Index) Lookup(id types.ModuleID) (*types.ModuleRecord, bool) {
	rec, ok := idx.modules[id]
	return rec, ok
}

// ByPath returns the record for a file path, root-relative or absolute.
func (idx *Index) ByPath(path string) (*types.ModuleRecord, bool) {
	id, ok := idx.byPath[filepath.ToSlash(path)]
	if !ok {
		return nil, false
	}
	return idx.modules[id], true
}

// Len returns the number of indexed modules.
func (idx *Index) Len() int { return len(idx.modules) }

// Records returns all records sorted by module identifier.
func (idx *Index) Records() []*types.ModuleRecord {
	records := make([]*types.ModuleRecord, 0, len(idx.modules))
	for _, rec := range idx.modules {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// TestModules returns the records classified as tests, sorted by ID.
func (idx *Index) TestModules() []*types.ModuleRecord {
	var tests []*types.ModuleRecord
	for _, rec := range idx.modules {
		if rec.IsTest {
			tests = append(tests, rec)
		}
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })
	return tests
}

// ParseFailures returns the root-relative paths of files that could not
// be parsed, sorted.
func (idx *Index) ParseFailures() []string {
	var paths []string
	for _, rec := range idx.modules {
		if rec.ParseFailed {
			paths = append(paths, rec.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// collectRecords derives a module identifier for every scanned file and
// classifies tests. Files whose names cannot form a module are dropped.
func collectRecords(cfg Config, files []scanner.FileInfo) []*types.ModuleRecord {
	var records []*types.ModuleRecord
	for _, file := range files {
		id, ok := deriveModuleID(cfg, file.Path)
		if !ok {
			continue
		}
		records = append(records, &types.ModuleRecord{
			ID:        id,
			Path:      file.Path,
			AbsPath:   file.FullPath,
			IsPackage: filepath.Base(file.Path) == "__init__.py",
			IsTest:    cfg.Naming.IsTest(file.Path, cfg.Suffixes),
		})
	}
	return records
}

// deriveModuleID maps a root-relative path to its dotted module name.
func deriveModuleID(cfg Config, relPath string) (types.ModuleID, bool) {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, sourceRoot := range cfg.SourceRoots {
		if len(parts) > 0 && parts[0] == sourceRoot {
			parts = parts[1:]
			break
		}
	}
	if len(parts) == 0 {
		return "", false
	}

	filename := parts[len(parts)-1]
	if filename == "__init__.py" {
		parts = parts[:len(parts)-1]
	} else {
		suffix := longestSuffix(filename, cfg.Suffixes)
		if suffix == "" {
			return "", false
		}
		parts[len(parts)-1] = strings.TrimSuffix(filename, suffix)
	}

	if len(parts) == 0 {
		return "", false
	}
	for _, part := range parts {
		if part == "" || part == "." {
			return "", false
		}
	}
	return types.ModuleID(strings.Join(parts, ".")), true
}

func longestSuffix(name string, suffixes []string) string {
	best := ""
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) && len(suffix) > len(best) {
			best = suffix
		}
	}
	if best == "" && strings.HasSuffix(name, ".py") {
		best = ".py"
	}
	return best
}

// parseAll extracts raw imports from every record in parallel and
// returns them keyed by module ID. Each worker owns its parser;
// tree-sitter parsers are not goroutine-safe.
func parseAll(cfg Config, records []*types.ModuleRecord) map[types.ModuleID][]pyimports.Import {
	parsed := make(map[types.ModuleID][]pyimports.Import, len(records))
	if len(records) == 0 {
		return parsed
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(records) {
		workers = len(records)
	}

	jobs := make(chan *types.ModuleRecord)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parser := pyimports.NewParser()
			for rec := range jobs {
				imports, err := parser.ParseFile(rec.AbsPath)
				mu.Lock()
				if err != nil {
					rec.ParseFailed = true
				} else {
					parsed[rec.ID] = imports
				}
				mu.Unlock()
			}
		}()
	}
	for _, rec := range records {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()
	return parsed
}

// resolveImports turns raw import statements into tagged references.
// Absolute imports resolve by exact match, then by longest internal
// ancestor; from-imports additionally promote "from pkg import name" to
// pkg.name when that submodule exists. Unmatched imports keep their raw
// (relative-expanded) token for fallback matching.
func (idx *Index) resolveImports(parsed map[types.ModuleID][]pyimports.Import) {
	for _, rec := range idx.modules {
		seen := make(map[types.ImportRef]struct{})
		var refs []types.ImportRef

		add := func(ref types.ImportRef) {
			if ref.Target == rec.ID {
				// "from . import x" inside a package names the package
				// itself; a self-edge carries no information.
				return
			}
			if _, dup := seen[ref]; dup {
				return
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}

		for _, imp := range parsed[rec.ID] {
			target := idx.expandRelative(rec, imp)
			if target == "" {
				continue
			}
			resolvedAny := false
			if imp.IsFrom {
				for _, name := range imp.Names {
					if name == "*" {
						continue
					}
					sub := types.ModuleID(target + "." + name)
					if _, ok := idx.modules[sub]; ok {
						add(types.ImportRef{Target: sub})
						resolvedAny = true
					}
				}
			}
			if id, ok := idx.resolveAbsolute(target); ok {
				add(types.ImportRef{Target: id})
				resolvedAny = true
			}
			if !resolvedAny {
				add(types.ImportRef{Raw: target})
			}
		}
		rec.Imports = refs
	}
}

// expandRelative converts a relative import to its absolute dotted form
// using the importing module's package. Returns "" when the import
// climbs above the repository root.
func (idx *Index) expandRelative(rec *types.ModuleRecord, imp pyimports.Import) string {
	level := imp.RelativeLevel()
	module := strings.TrimLeft(imp.Module, ".")
	if level == 0 {
		return module
	}

	base := strings.Split(string(rec.ID), ".")
	if !rec.IsPackage {
		base = base[:len(base)-1]
	}
	if level > 1 {
		drop := level - 1
		if drop > len(base) {
			drop = len(base)
		}
		base = base[:len(base)-drop]
	}
	if module != "" {
		base = append(base, strings.Split(module, ".")...)
	}

	var parts []string
	for _, part := range base {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ".")
}

// resolveAbsolute matches a dotted name against the index, falling back
// to the longest internal ancestor ("a.b.c" matches package "a.b" when
// c is an attribute rather than a module).
func (idx *Index) resolveAbsolute(target string) (types.ModuleID, bool) {
	parts := strings.Split(target, ".")
	for end := len(parts); end > 0; end-- {
		candidate := types.ModuleID(strings.Join(parts[:end], "."))
		if _, ok := idx.modules[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// fingerprint hashes the scanned file metadata so cached snapshots can
// be invalidated when any file is added, removed, resized or touched.
func fingerprint(files []scanner.FileInfo) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%s|%d|%d", f.Path, f.Size, f.MTime))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
