// Package config loads and validates tool configuration: built-in
// defaults, then the global file, then the project file, then GTS_*
// environment overrides, each layer on top of the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-testsight/pkg/indexer"
	"github.com/l3aro/go-testsight/pkg/tokens"
)

// ErrInvalid marks fatal configuration errors; anything wrapping it
// aborts the run instead of degrading to a warning.
var ErrInvalid = errors.New("invalid configuration")

// Diff modes accepted by the diff section.
const (
	DiffStaged   = "staged"
	DiffUnstaged = "unstaged"
	DiffRange    = "range"
	DiffCustom   = "custom"
)

// DiffConfig describes how the changed-file list is obtained from git.
type DiffConfig struct {
	Mode             string   `yaml:"mode"`
	Base             string   `yaml:"base"`
	Head             string   `yaml:"head"`
	CustomArgs       []string `yaml:"custom-args"`
	DiffFilter       string   `yaml:"diff-filter"`
	IncludeUntracked bool     `yaml:"include-untracked"`
}

// TraversalConfig bounds the reverse dependency walk; zero is unbounded.
type TraversalConfig struct {
	MaxDepth  int `yaml:"max-depth"`
	MaxFanout int `yaml:"max-fanout"`
}

// Config is the top-level tool configuration.
type Config struct {
	Root        string   `yaml:"root"`
	SourceRoots []string `yaml:"source-roots"`
	Suffixes    []string `yaml:"suffixes"`
	ExcludeDirs []string `yaml:"exclude-dirs"`
	IgnoreFile  string   `yaml:"ignore-file"`

	TestCommand  []string          `yaml:"test-command"`
	Env          map[string]string `yaml:"env"`
	DryRun       bool              `yaml:"dry-run"`
	Quiet        bool              `yaml:"quiet"`
	PrintCommand bool              `yaml:"print-command"`

	Naming    indexer.NamingRules `yaml:"naming"`
	Tokens    tokens.Config       `yaml:"tokens"`
	Traversal TraversalConfig     `yaml:"traversal"`
	Diff      DiffConfig          `yaml:"diff"`

	Cache   bool `yaml:"cache"`
	Workers int  `yaml:"workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SourceRoots:  []string{"src"},
		Suffixes:     []string{".py"},
		ExcludeDirs:  defaultExcludeDirs(),
		IgnoreFile:   ".gtsignore",
		TestCommand:  []string{"pytest", "-q", "--maxfail=1"},
		PrintCommand: true,
		Naming:       indexer.DefaultNamingRules(),
		Tokens:       tokens.DefaultConfig(),
		Diff: DiffConfig{
			Mode:       DiffStaged,
			DiffFilter: "ACMR",
		},
		Cache: true,
	}
}

func defaultExcludeDirs() []string {
	return []string{
		".git", ".hg", ".svn",
		".venv", "venv", ".tox", ".nox",
		"__pycache__", ".mypy_cache", ".pytest_cache", ".ruff_cache",
		"node_modules", "build", "dist", ".eggs",
	}
}

// ProjectDir is the per-repository settings directory.
const ProjectDir = ".gts"

// configFile is the settings file name inside ProjectDir.
const configFile = "config.yaml"

// ProjectPath returns the project config file path under root.
func ProjectPath(root string) string {
	return filepath.Join(root, ProjectDir, configFile)
}

// CacheDir returns the index snapshot directory under root.
func CacheDir(root string) string {
	return filepath.Join(root, ProjectDir, "cache")
}

// GlobalPath returns the per-user config file path.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ProjectDir, configFile), nil
}

// Load builds the effective configuration for a repository root:
// defaults, global file, project file, then environment overrides.
// Missing files are fine; unreadable or malformed ones are errors.
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()

	if global, err := GlobalPath(); err == nil {
		if err := mergeFile(cfg, global); err != nil {
			return nil, err
		}
	}
	if err := mergeFile(cfg, ProjectPath(root)); err != nil {
		return nil, err
	}

	if cfg.Root == "" {
		cfg.Root = root
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads a single config file on top of the defaults,
// ignoring the global/project chain. Used by --config.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Save writes the project config file under root, creating the
// settings directory as needed.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := ProjectPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies GTS_* environment variables on top of the
// file-derived configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GTS_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("GTS_SOURCE_ROOTS"); v != "" {
		cfg.SourceRoots = splitList(v)
	}
	if v := os.Getenv("GTS_EXCLUDE_DIRS"); v != "" {
		cfg.ExcludeDirs = splitList(v)
	}
	if v := os.Getenv("GTS_TEST_COMMAND"); v != "" {
		cfg.TestCommand = strings.Fields(v)
	}
	if v := os.Getenv("GTS_DIFF_MODE"); v != "" {
		cfg.Diff.Mode = v
	}
	if v := os.Getenv("GTS_DIFF_BASE"); v != "" {
		cfg.Diff.Base = v
	}
	if v := os.Getenv("GTS_DIFF_HEAD"); v != "" {
		cfg.Diff.Head = v
	}
	if v := os.Getenv("GTS_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tokens.Threshold = n
		}
	}
	if v := os.Getenv("GTS_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Traversal.MaxDepth = n
		}
	}
	if v := os.Getenv("GTS_MAX_FANOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Traversal.MaxFanout = n
		}
	}
	if v := os.Getenv("GTS_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache = b
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the configuration for fatal problems. Every returned
// error wraps ErrInvalid.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("%w: root directory is required", ErrInvalid)
	}
	info, err := os.Stat(c.Root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: root %q is not a directory", ErrInvalid, c.Root)
	}
	if len(c.TestCommand) == 0 {
		return fmt.Errorf("%w: test command must not be empty", ErrInvalid)
	}
	if len(c.Suffixes) == 0 {
		return fmt.Errorf("%w: at least one source suffix is required", ErrInvalid)
	}
	switch c.Diff.Mode {
	case DiffStaged, DiffUnstaged, DiffCustom:
	case DiffRange:
		if c.Diff.Base == "" {
			return fmt.Errorf("%w: diff mode %q requires a base revision", ErrInvalid, DiffRange)
		}
	default:
		return fmt.Errorf("%w: unknown diff mode %q", ErrInvalid, c.Diff.Mode)
	}
	if c.Diff.Mode == DiffCustom && len(c.Diff.CustomArgs) == 0 {
		return fmt.Errorf("%w: diff mode %q requires custom-args", ErrInvalid, DiffCustom)
	}
	if c.Tokens.MinLength < 1 {
		return fmt.Errorf("%w: token min-length must be at least 1", ErrInvalid)
	}
	if c.Tokens.Threshold < 0 {
		return fmt.Errorf("%w: token threshold must not be negative", ErrInvalid)
	}
	if c.Traversal.MaxDepth < 0 || c.Traversal.MaxFanout < 0 {
		return fmt.Errorf("%w: traversal bounds must not be negative", ErrInvalid)
	}
	return nil
}

// FindRepoRoot walks upward from start looking for a .git entry.
func FindRepoRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no git repository found above %s", start)
		}
		dir = parent
	}
}

// IndexerConfig translates the tool configuration into indexer settings.
func (c *Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		Root:        c.Root,
		SourceRoots: c.SourceRoots,
		Suffixes:    c.Suffixes,
		ExcludeDirs: c.ExcludeDirs,
		IgnoreFile:  c.IgnoreFile,
		Naming:      c.Naming,
		Workers:     c.Workers,
	}
}
