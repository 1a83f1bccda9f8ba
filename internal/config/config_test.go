package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// isolateHome keeps the test away from any real ~/.gts/config.yaml.
func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.TestCommand; len(got) != 3 || got[0] != "pytest" {
		t.Errorf("test command = %v", got)
	}
	if cfg.Diff.Mode != DiffStaged || cfg.Diff.DiffFilter != "ACMR" {
		t.Errorf("diff defaults = %+v", cfg.Diff)
	}
	if cfg.Tokens.Threshold != 12 || cfg.Tokens.MinLength != 3 {
		t.Errorf("token defaults = %+v", cfg.Tokens)
	}
	if !cfg.Cache || !cfg.PrintCommand {
		t.Error("cache and print-command default on")
	}
}

func TestLoadMergesProjectFile(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	dir := filepath.Join(root, ProjectDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := `
source-roots: [app]
test-command: [pytest, -x]
diff:
  mode: range
  base: main
tokens:
  threshold: 20
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != root {
		t.Errorf("Root = %q, want %q", cfg.Root, root)
	}
	if len(cfg.SourceRoots) != 1 || cfg.SourceRoots[0] != "app" {
		t.Errorf("SourceRoots = %v", cfg.SourceRoots)
	}
	if cfg.Diff.Mode != DiffRange || cfg.Diff.Base != "main" {
		t.Errorf("Diff = %+v", cfg.Diff)
	}
	if cfg.Tokens.Threshold != 20 {
		t.Errorf("Threshold = %d", cfg.Tokens.Threshold)
	}
	// Untouched keys keep their defaults.
	if cfg.Diff.DiffFilter != "ACMR" {
		t.Errorf("DiffFilter = %q", cfg.Diff.DiffFilter)
	}
}

func TestLoadMissingFilesUseDefaults(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != root || cfg.Diff.Mode != DiffStaged {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	path := ProjectPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("diff: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil {
		t.Error("malformed project config must fail Load")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("GTS_DIFF_MODE", "unstaged")
	t.Setenv("GTS_TEST_COMMAND", "pytest -vv")
	t.Setenv("GTS_THRESHOLD", "30")
	t.Setenv("GTS_CACHE", "false")
	t.Setenv("GTS_SOURCE_ROOTS", "app, services")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Diff.Mode != DiffUnstaged {
		t.Errorf("Mode = %q", cfg.Diff.Mode)
	}
	if len(cfg.TestCommand) != 2 || cfg.TestCommand[1] != "-vv" {
		t.Errorf("TestCommand = %v", cfg.TestCommand)
	}
	if cfg.Tokens.Threshold != 30 {
		t.Errorf("Threshold = %d", cfg.Tokens.Threshold)
	}
	if cfg.Cache {
		t.Error("GTS_CACHE=false must disable the cache")
	}
	if len(cfg.SourceRoots) != 2 || cfg.SourceRoots[1] != "services" {
		t.Errorf("SourceRoots = %v", cfg.SourceRoots)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Root = root
	cfg.Tokens.Threshold = 25
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Tokens.Threshold != 25 {
		t.Errorf("Threshold = %d, want 25", loaded.Tokens.Threshold)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Root = t.TempDir()
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing root", func(c *Config) { c.Root = "" }},
		{"root not a directory", func(c *Config) { c.Root = filepath.Join(c.Root, "nope") }},
		{"empty test command", func(c *Config) { c.TestCommand = nil }},
		{"empty suffixes", func(c *Config) { c.Suffixes = nil }},
		{"unknown diff mode", func(c *Config) { c.Diff.Mode = "patch" }},
		{"range without base", func(c *Config) { c.Diff.Mode = DiffRange }},
		{"custom without args", func(c *Config) { c.Diff.Mode = DiffCustom }},
		{"zero token length", func(c *Config) { c.Tokens.MinLength = 0 }},
		{"negative threshold", func(c *Config) { c.Tokens.Threshold = -5 }},
		{"negative depth", func(c *Config) { c.Traversal.MaxDepth = -1 }},
	}
	for _, tc := range cases {
		cfg := valid()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: error %v does not wrap ErrInvalid", tc.name, err)
		}
	}
}

func TestFindRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "src", "billing")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRepoRoot(nested)
	if err != nil {
		t.Fatalf("FindRepoRoot: %v", err)
	}
	if got != root {
		t.Errorf("got %q, want %q", got, root)
	}

	if _, err := FindRepoRoot(t.TempDir()); err == nil {
		t.Error("expected error outside any repository")
	}
}
