package scanner

import (
	"path/filepath"
	"strings"
)

// IgnorePattern is a single gitignore-style pattern from a .gtsignore file.
type IgnorePattern struct {
	pattern     string
	isNegation  bool // pattern starts with !
	isDirectory bool // pattern ends with /
	isAbsolute  bool // pattern starts with /
	segments    []string
}

// ParseIgnorePattern parses one gitignore-style pattern line.
func ParseIgnorePattern(pattern string) IgnorePattern {
	p := IgnorePattern{pattern: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.isNegation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.isDirectory = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		p.isAbsolute = true
		pattern = pattern[1:]
	}
	p.segments = strings.Split(pattern, "/")
	return p
}

// IsNegation reports whether this pattern re-includes matched paths.
func (p IgnorePattern) IsNegation() bool {
	return p.isNegation
}

// Match reports whether the slash-separated relative path matches this
// pattern. Directory patterns match everything under a directory of that
// name; non-anchored patterns may match at any depth.
func (p IgnorePattern) Match(path string) bool {
	pathSegments := strings.Split(filepath.ToSlash(path), "/")

	if p.isDirectory {
		return p.matchDirectory(pathSegments)
	}

	if p.isAbsolute {
		return matchSegments(p.segments, pathSegments)
	}
	for start := 0; start < len(pathSegments); start++ {
		if matchSegments(p.segments, pathSegments[start:]) {
			return true
		}
	}
	return false
}

// matchDirectory checks whether the path contains a directory run equal
// to the pattern segments (anchored at the root for absolute patterns).
func (p IgnorePattern) matchDirectory(pathSegments []string) bool {
	starts := len(pathSegments) - len(p.segments)
	if starts < 0 {
		return false
	}
	if p.isAbsolute {
		starts = 0
	}
	for start := 0; start <= starts; start++ {
		match := true
		for i, seg := range p.segments {
			if !strings.EqualFold(seg, pathSegments[start+i]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// matchSegments matches pattern segments against path segments, consuming
// both completely. "**" spans any number of path segments; other segments
// use filepath.Match glob syntax.
func matchSegments(patternSegs, pathSegs []string) bool {
	if len(patternSegs) == 0 {
		return len(pathSegs) == 0
	}

	if patternSegs[0] == "**" {
		if len(patternSegs) == 1 {
			return true
		}
		for i := 0; i <= len(pathSegs); i++ {
			if matchSegments(patternSegs[1:], pathSegs[i:]) {
				return true
			}
		}
		return false
	}

	if len(pathSegs) == 0 {
		return false
	}
	ok, err := filepath.Match(patternSegs[0], pathSegs[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(patternSegs[1:], pathSegs[1:])
}
