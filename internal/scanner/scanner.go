// Package scanner walks a project tree and returns the source files the
// indexer should consider. It honors a default exclusion list, skips
// hidden directories, and applies .gtsignore files with gitignore-style
// patterns.
package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo describes one discovered source file.
type FileInfo struct {
	Path     string // relative path from root, slash-separated
	FullPath string // absolute path
	Size     int64
	MTime    int64 // Unix nanoseconds, used for cache invalidation keys
}

// Options configures the scanner.
type Options struct {
	// Suffixes limits results to files with one of these suffixes
	// (e.g. ".py"). Empty means all files.
	Suffixes []string
	// ExcludeDirs are directory names skipped at any depth.
	ExcludeDirs []string
	// IgnoreFileName is the per-directory ignore file (default .gtsignore).
	IgnoreFileName string
	// SkipHidden skips dot-files and dot-directories.
	SkipHidden bool
}

// DefaultExcludes are the directory names skipped by default: virtual
// environments, VCS metadata, caches, and build output.
var DefaultExcludes = []string{
	".git",
	".hg",
	".svn",
	".mypy_cache",
	".pytest_cache",
	".ruff_cache",
	".tox",
	".nox",
	".venv",
	"venv",
	"__pycache__",
	"node_modules",
	"build",
	"dist",
	".idea",
	".vscode",
}

// DefaultOptions returns scanner options suitable for a Python tree.
func DefaultOptions() Options {
	return Options{
		Suffixes:       []string{".py"},
		ExcludeDirs:    DefaultExcludes,
		IgnoreFileName: ".gtsignore",
		SkipHidden:     true,
	}
}

// Scanner discovers source files under a project root.
type Scanner struct {
	opts Options
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".gtsignore"
	}
	return &Scanner{opts: opts}
}

// Scan walks root and returns every matching file, root-relative and
// sorted by the walk order of filepath.Walk (lexical).
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	patterns, err := s.loadIgnorePatterns(absRoot)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if s.isExcluded(info.Name()) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(path)
			if err == nil && len(nested) > 0 {
				patterns = append(patterns, nested...)
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if !s.matchesSuffix(info.Name()) {
			return nil
		}
		if matchesIgnorePatterns(relSlash, patterns) {
			return nil
		}

		files = append(files, FileInfo{
			Path:     relSlash,
			FullPath: path,
			Size:     info.Size(),
			MTime:    info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	return files, nil
}

func (s *Scanner) isExcluded(name string) bool {
	for _, exclude := range s.opts.ExcludeDirs {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

func (s *Scanner) matchesSuffix(name string) bool {
	if len(s.opts.Suffixes) == 0 {
		return true
	}
	for _, suffix := range s.opts.Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads the ignore file in dir, if present.
func (s *Scanner) loadIgnorePatterns(dir string) ([]IgnorePattern, error) {
	f, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, sc.Err()
}

// matchesIgnorePatterns applies gitignore semantics: patterns are checked
// in order and negation patterns override earlier positive matches.
func matchesIgnorePatterns(relPath string, patterns []IgnorePattern) bool {
	ignored := false
	for _, p := range patterns {
		if p.Match(relPath) {
			ignored = !p.IsNegation()
		}
	}
	return ignored
}

// Scan is a convenience wrapper using DefaultOptions.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
