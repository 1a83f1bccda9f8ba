// Package gitdiff acquires the changed-file list from git: staged or
// unstaged edits, a revision range, or caller-supplied diff arguments,
// optionally widened with untracked files.
package gitdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-testsight/internal/config"
)

// Options describe one change-detection run.
type Options struct {
	// Root is the repository root; reported paths are relative to it.
	Root string
	// Mode is one of the config.Diff* modes.
	Mode string
	// Base and Head delimit the range mode; Head defaults to HEAD.
	Base string
	Head string
	// CustomArgs are the raw "git diff" arguments for custom mode.
	CustomArgs []string
	// DiffFilter restricts the change kinds (default ACMR: added,
	// copied, modified, renamed; deletions have nothing left to test).
	DiffFilter string
	// IncludeUntracked widens the set with untracked files.
	IncludeUntracked bool
	// Suffixes filter the reported paths; empty keeps everything.
	Suffixes []string
}

// FromConfig builds options from the tool configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Root:             cfg.Root,
		Mode:             cfg.Diff.Mode,
		Base:             cfg.Diff.Base,
		Head:             cfg.Diff.Head,
		CustomArgs:       cfg.Diff.CustomArgs,
		DiffFilter:       cfg.Diff.DiffFilter,
		IncludeUntracked: cfg.Diff.IncludeUntracked,
		Suffixes:         cfg.Suffixes,
	}
}

// Args returns the git argument vector for the configured mode.
func Args(opts Options) ([]string, error) {
	filter := opts.DiffFilter
	if filter == "" {
		filter = "ACMR"
	}
	filterArg := "--diff-filter=" + filter

	switch opts.Mode {
	case config.DiffStaged:
		return []string{"diff", "--name-only", "--cached", filterArg}, nil
	case config.DiffUnstaged:
		return []string{"diff", "--name-only", filterArg}, nil
	case config.DiffRange:
		if opts.Base == "" {
			return nil, fmt.Errorf("diff mode %q requires a base revision", config.DiffRange)
		}
		head := opts.Head
		if head == "" {
			head = "HEAD"
		}
		return []string{"diff", "--name-only", filterArg, opts.Base + ".." + head}, nil
	case config.DiffCustom:
		if len(opts.CustomArgs) == 0 {
			return nil, fmt.Errorf("diff mode %q requires explicit git arguments", config.DiffCustom)
		}
		args := []string{"diff"}
		if !contains(opts.CustomArgs, "--name-only") {
			args = append(args, "--name-only")
		}
		if !containsPrefix(opts.CustomArgs, "--diff-filter") {
			args = append(args, filterArg)
		}
		return append(args, opts.CustomArgs...), nil
	default:
		return nil, fmt.Errorf("unknown diff mode %q", opts.Mode)
	}
}

// Collect runs git and returns the changed paths, root-relative and
// slash-separated, suffix-filtered, deduplicated in first-seen order.
func Collect(ctx context.Context, opts Options) ([]string, error) {
	args, err := Args(opts)
	if err != nil {
		return nil, err
	}
	out, err := runGit(ctx, opts.Root, args)
	if err != nil {
		return nil, err
	}
	paths := filterPaths(out, opts.Suffixes)

	if opts.IncludeUntracked {
		out, err := runGit(ctx, opts.Root, []string{"ls-files", "--others", "--exclude-standard"})
		if err != nil {
			return nil, err
		}
		paths = append(paths, filterPaths(out, opts.Suffixes)...)
	}

	seen := make(map[string]struct{}, len(paths))
	var unique []string
	for _, path := range paths {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		unique = append(unique, path)
	}
	return unique, nil
}

// runGit executes git under root. "git diff" exits 1 when differences
// exist, so both 0 and 1 are success.
func runGit(ctx context.Context, root string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok || exitErr.ExitCode() != 1 {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return "", fmt.Errorf("git %s: %s", args[0], msg)
		}
	}
	return stdout.String(), nil
}

func filterPaths(out string, suffixes []string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		entry := strings.TrimSpace(line)
		if entry == "" {
			continue
		}
		entry = filepath.ToSlash(entry)
		if len(suffixes) > 0 && !hasAnySuffix(entry, suffixes) {
			continue
		}
		paths = append(paths, entry)
	}
	return paths
}

func hasAnySuffix(path string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func containsPrefix(items []string, prefix string) bool {
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			return true
		}
	}
	return false
}
