// Package runner executes the configured test command against the
// impacted test files.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/l3aro/go-testsight/internal/config"
)

// Options control one execution.
type Options struct {
	// Root is the working directory for the test command.
	Root string
	// Command is the base test command ("pytest -q --maxfail=1").
	Command []string
	// Env holds extra environment entries layered over the process env.
	Env map[string]string
	// DryRun prints the plan without executing anything.
	DryRun bool
	// Quiet suppresses the plan listing and command echo.
	Quiet bool
	// PrintCommand echoes the assembled command before running it.
	PrintCommand bool
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// FromConfig builds options from the tool configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Root:         cfg.Root,
		Command:      cfg.TestCommand,
		Env:          cfg.Env,
		DryRun:       cfg.DryRun,
		Quiet:        cfg.Quiet,
		PrintCommand: cfg.PrintCommand,
	}
}

// BuildCommand assembles the full argument vector: the configured test
// command followed by the root-relative test paths.
func BuildCommand(base []string, tests []string) []string {
	cmd := make([]string, 0, len(base)+len(tests))
	cmd = append(cmd, base...)
	cmd = append(cmd, tests...)
	return cmd
}

// Run executes the test command for the given test paths and returns
// its exit code. An empty test list is a successful no-op.
func Run(ctx context.Context, opts Options, tests []string) (int, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	if len(tests) == 0 {
		if !opts.Quiet {
			fmt.Fprintln(stdout, "no impacted tests detected")
		}
		return 0, nil
	}

	if !opts.Quiet {
		fmt.Fprintf(stdout, "impacted test modules (%d):\n", len(tests))
		for _, path := range tests {
			fmt.Fprintf(stdout, "  - %s\n", path)
		}
	}
	if opts.DryRun {
		return 0, nil
	}
	if len(opts.Command) == 0 {
		return 0, fmt.Errorf("test command is empty")
	}

	argv := BuildCommand(opts.Command, tests)
	if opts.PrintCommand && !opts.Quiet {
		fmt.Fprintln(stdout, "running:", strings.Join(argv, " "))
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Root
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = os.Stdin
	cmd.Env = mergeEnv(os.Environ(), opts.Env)

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("running %s: %w", argv[0], err)
	}
	return 0, nil
}

// mergeEnv layers extra entries over the process environment.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, shadowed := extra[key]; shadowed {
			continue
		}
		out = append(out, kv)
	}
	for key, value := range extra {
		out = append(out, key+"="+value)
	}
	return out
}
