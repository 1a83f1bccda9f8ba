package gitdiff

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/l3aro/go-testsight/internal/config"
)

func TestArgs(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want []string
	}{
		{
			"staged",
			Options{Mode: config.DiffStaged},
			[]string{"diff", "--name-only", "--cached", "--diff-filter=ACMR"},
		},
		{
			"unstaged",
			Options{Mode: config.DiffUnstaged, DiffFilter: "ACM"},
			[]string{"diff", "--name-only", "--diff-filter=ACM"},
		},
		{
			"range with head",
			Options{Mode: config.DiffRange, Base: "main", Head: "feature"},
			[]string{"diff", "--name-only", "--diff-filter=ACMR", "main..feature"},
		},
		{
			"range defaults head",
			Options{Mode: config.DiffRange, Base: "v1.2.0"},
			[]string{"diff", "--name-only", "--diff-filter=ACMR", "v1.2.0..HEAD"},
		},
		{
			"custom gains name-only and filter",
			Options{Mode: config.DiffCustom, CustomArgs: []string{"HEAD~3"}},
			[]string{"diff", "--name-only", "--diff-filter=ACMR", "HEAD~3"},
		},
		{
			"custom keeps explicit flags",
			Options{Mode: config.DiffCustom, CustomArgs: []string{"--name-only", "--diff-filter=A", "HEAD~1"}},
			[]string{"diff", "--name-only", "--diff-filter=A", "HEAD~1"},
		},
	}
	for _, tc := range cases {
		got, err := Args(tc.opts)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestArgsErrors(t *testing.T) {
	cases := []Options{
		{Mode: config.DiffRange},
		{Mode: config.DiffCustom},
		{Mode: "patch"},
	}
	for _, opts := range cases {
		if _, err := Args(opts); err == nil {
			t.Errorf("Args(%+v): expected error", opts)
		}
	}
}

func TestFilterPaths(t *testing.T) {
	out := "billing/service.py\n\nREADME.md\ntests/test_service.py\n"
	got := filterPaths(out, []string{".py"})
	want := []string{"billing/service.py", "tests/test_service.py"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	all := filterPaths(out, nil)
	if len(all) != 3 {
		t.Errorf("unfiltered: got %v", all)
	}
}

// initRepo sets up a throwaway git repository.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	return root
}

func write(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectStaged(t *testing.T) {
	root := initRepo(t)
	write(t, root, "billing/service.py", "x = 1\n")
	write(t, root, "notes.txt", "hi\n")

	cmd := exec.Command("git", "add", ".")
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}

	got, err := Collect(context.Background(), Options{
		Root:     root,
		Mode:     config.DiffStaged,
		Suffixes: []string{".py"},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"billing/service.py"}) {
		t.Errorf("got %v", got)
	}
}

func TestCollectUntracked(t *testing.T) {
	root := initRepo(t)
	write(t, root, "new_module.py", "x = 1\n")

	got, err := Collect(context.Background(), Options{
		Root:             root,
		Mode:             config.DiffUnstaged,
		Suffixes:         []string{".py"},
		IncludeUntracked: true,
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"new_module.py"}) {
		t.Errorf("got %v", got)
	}

	// Without the flag the untracked file stays invisible.
	got, err = Collect(context.Background(), Options{
		Root:     root,
		Mode:     config.DiffUnstaged,
		Suffixes: []string{".py"},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestCollectOutsideRepoFails(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := Collect(context.Background(), Options{
		Root: t.TempDir(),
		Mode: config.DiffStaged,
	})
	if err == nil {
		t.Error("expected error outside a git repository")
	}
}
