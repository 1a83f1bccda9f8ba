// Package tokens implements the filename-token fallback matcher: when a
// changed file has no static import edge to any test, tests are matched
// by the path vocabulary they share with the change.
package tokens

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/l3aro/go-testsight/pkg/types"
)

const (
	// FilenameWeight is the per-character weight of tokens drawn from
	// the file's base name.
	FilenameWeight = 2
	// DirWeight is the per-character weight of tokens drawn from the
	// file's directory path.
	DirWeight = 1
)

// Config controls token extraction and match acceptance.
type Config struct {
	// MinLength drops tokens shorter than this many characters.
	MinLength int `yaml:"min-length"`
	// Threshold is the minimum score for a fallback match.
	Threshold int `yaml:"threshold"`
	// Stopwords are tokens too generic to signal a relationship.
	Stopwords []string `yaml:"stopwords"`
}

// DefaultConfig returns the standard tokenizer settings.
func DefaultConfig() Config {
	return Config{
		MinLength: 3,
		Threshold: 12,
		Stopwords: []string{
			"init", "main", "src", "test", "tests",
			"lib", "pkg", "internal", "common", "base", "core",
			"util", "utils", "helper", "helpers",
		},
	}
}

// Set maps a token to the highest weight it was seen at.
type Set map[string]int

// add records a token at the given weight, keeping the higher weight on
// collision.
func (s Set) add(token string, weight int) {
	if weight > s[token] {
		s[token] = weight
	}
}

// Score sums len(token) x weight over the tokens shared between the two
// sets. A token's weight is the lower of its weights on either side.
func Score(a, b Set) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	score := 0
	for token, weightA := range a {
		weightB, ok := b[token]
		if !ok {
			continue
		}
		weight := weightA
		if weightB < weight {
			weight = weightB
		}
		score += len(token) * weight
	}
	return score
}

// Tokenizer extracts normalized tokens from paths and dotted names.
type Tokenizer struct {
	minLength int
	stopwords map[string]struct{}
}

// NewTokenizer builds a tokenizer from config.
func NewTokenizer(cfg Config) *Tokenizer {
	stop := make(map[string]struct{}, len(cfg.Stopwords))
	for _, word := range cfg.Stopwords {
		stop[strings.ToLower(word)] = struct{}{}
	}
	minLength := cfg.MinLength
	if minLength < 1 {
		minLength = 1
	}
	return &Tokenizer{minLength: minLength, stopwords: stop}
}

// SplitWord breaks one path segment into lowercase tokens: snake_case,
// kebab-case and camelCase boundaries all split, the whole segment is
// kept as a compound token, and long plurals contribute their stem.
func (t *Tokenizer) SplitWord(word string) []string {
	normalized := strings.ReplaceAll(word, "-", "_")

	var parts []string
	for _, raw := range strings.Split(normalized, "_") {
		if raw == "" {
			continue
		}
		parts = append(parts, splitCamel(raw)...)
	}

	set := make(map[string]struct{}, len(parts)+1)
	for _, part := range parts {
		set[part] = struct{}{}
	}
	set[strings.ToLower(normalized)] = struct{}{}
	for _, part := range parts {
		if len(part) > 4 && strings.HasSuffix(part, "s") {
			set[part[:len(part)-1]] = struct{}{}
		}
	}

	var out []string
	for token := range set {
		if len(token) < t.minLength {
			continue
		}
		if _, stop := t.stopwords[token]; stop {
			continue
		}
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// splitCamel splits on lower-to-upper transitions and on the last
// capital of an acronym run ("HTTPServer" -> "http", "server").
func splitCamel(raw string) []string {
	runes := []rune(raw)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		boundary := unicode.IsUpper(runes[i]) &&
			(unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1])))
		if boundary {
			parts = append(parts, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}
	parts = append(parts, strings.ToLower(string(runes[start:])))
	return parts
}

// PathTokens extracts the weighted token set of a root-relative path:
// base name tokens at FilenameWeight, directory tokens at DirWeight.
// Extensions are dropped before splitting.
func (t *Tokenizer) PathTokens(relPath string) Set {
	set := make(Set)
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for i, part := range parts {
		weight := DirWeight
		if i == len(parts)-1 {
			weight = FilenameWeight
		}
		base, _, _ := strings.Cut(part, ".")
		for _, token := range t.SplitWord(base) {
			set.add(token, weight)
		}
	}
	return set
}

// DottedTokens extracts tokens from a dotted module reference at the
// given weight, one segment at a time.
func (t *Tokenizer) DottedTokens(dotted string, weight int) Set {
	set := make(Set)
	for _, part := range strings.Split(dotted, ".") {
		for _, token := range t.SplitWord(part) {
			set.add(token, weight)
		}
	}
	return set
}

// Match is one test module accepted by the fallback matcher.
type Match struct {
	ID    types.ModuleID
	Path  string
	Score int
}

// Matcher scores changed paths against a fixed set of test modules.
type Matcher struct {
	tokenizer *Tokenizer
	threshold int
	tests     []testEntry
}

type testEntry struct {
	id     types.ModuleID
	path   string
	tokens Set
}

// NewMatcher precomputes token sets for the given test modules. A test's
// vocabulary is its own path plus the dotted names of its unresolved
// imports, the latter at directory weight: a test importing a module the
// index could not resolve still hints at what it covers.
func NewMatcher(tests []*types.ModuleRecord, cfg Config) *Matcher {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 1
	}
	m := &Matcher{
		tokenizer: NewTokenizer(cfg),
		threshold: threshold,
	}
	for _, rec := range tests {
		set := m.tokenizer.PathTokens(rec.Path)
		for _, ref := range rec.Imports {
			if ref.IsResolved() {
				continue
			}
			for token, weight := range m.tokenizer.DottedTokens(ref.Raw, DirWeight) {
				set.add(token, weight)
			}
		}
		m.tests = append(m.tests, testEntry{id: rec.ID, path: rec.Path, tokens: set})
	}
	return m
}

// Match returns the tests scoring at or above the threshold against the
// changed path, ordered by descending score and then path.
func (m *Matcher) Match(changedPath string) []Match {
	changed := m.tokenizer.PathTokens(changedPath)
	if len(changed) == 0 {
		return nil
	}

	var matches []Match
	for _, entry := range m.tests {
		score := Score(changed, entry.tokens)
		if score < m.threshold {
			continue
		}
		matches = append(matches, Match{ID: entry.id, Path: entry.path, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Path < matches[j].Path
	})
	return matches
}
