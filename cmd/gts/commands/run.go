package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-testsight/internal/log"
	"github.com/l3aro/go-testsight/internal/runner"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve the impacted tests and execute the test command",
	Long: `Resolves the change set into impacted tests and hands them to the
configured test command (default: pytest -q --maxfail=1). The command's
exit code becomes gts's exit code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyDiffFlags(cmd, cfg)
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			cfg.DryRun = true
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			cfg.Quiet = true
		}
		if command, _ := cmd.Flags().GetString("test-command"); command != "" {
			cfg.TestCommand = strings.Fields(command)
		}

		changed, err := changeSet(cmd, cfg)
		if err != nil {
			return err
		}
		idx, err := buildIndex(cfg)
		if err != nil {
			return err
		}
		result := newResolver(cfg, idx).Resolve(changed)

		for _, warning := range result.Warnings {
			log.Default().Warn("skipping file", "kind", string(warning.Kind), "path", warning.Path)
		}
		if result.Capped {
			log.Default().Warn("traversal capped; impact set may be incomplete",
				"at", fmt.Sprintf("%v", result.CappedAt))
		}
		if result.ParseFailures > 0 {
			log.Default().Warn("some files could not be analyzed; the graph may be missing edges",
				"count", result.ParseFailures)
		}

		code, err := runner.Run(cmd.Context(), runner.FromConfig(cfg), result.Paths())
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	addDiffFlags(runCmd)
	runCmd.Flags().Bool("dry-run", false, "List the impacted tests without running them")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress the plan listing and command echo")
	runCmd.Flags().String("test-command", "", "Override the configured test command")
}
