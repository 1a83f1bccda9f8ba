package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-testsight/internal/config"
	"github.com/l3aro/go-testsight/internal/gitdiff"
	"github.com/l3aro/go-testsight/internal/log"
	"github.com/l3aro/go-testsight/pkg/types"
)

// PlanOutput is the JSON envelope of the plan command.
type PlanOutput struct {
	Root     string               `json:"root"`
	Changed  []string             `json:"changed"`
	Impacted []types.ImpactedTest `json:"impacted"`
	Warnings []types.Warning      `json:"warnings,omitempty"`
	Capped   bool                 `json:"capped,omitempty"`
	CappedAt []types.ModuleID     `json:"capped_at,omitempty"`
	// ParseFailures counts indexed files that could not be analyzed.
	ParseFailures int `json:"parse_failures,omitempty"`
}

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the impacted tests for the current changes",
	Long: `Resolves the change set into the tests it impacts without running
anything. Changes come from git (see --diff) or from explicit --changed
flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyDiffFlags(cmd, cfg)

		changed, err := changeSet(cmd, cfg)
		if err != nil {
			return err
		}

		idx, err := buildIndex(cfg)
		if err != nil {
			return err
		}
		result := newResolver(cfg, idx).Resolve(changed)

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return printPlanJSON(cfg, changed, result)
		}
		printPlan(changed, result)
		return nil
	},
}

func init() {
	addDiffFlags(planCmd)
	planCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

// changeSet returns the changed paths: explicit flags win, git otherwise.
func changeSet(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	if explicit, _ := cmd.Flags().GetStringArray("changed"); len(explicit) > 0 {
		return explicit, nil
	}
	changed, err := gitdiff.Collect(cmd.Context(), gitdiff.FromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("collecting changes: %w", err)
	}
	log.Default().Debug("collected changes", "mode", cfg.Diff.Mode, "files", len(changed))
	return changed, nil
}

func printPlan(changed []string, result *types.ImpactResult) {
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

	if len(changed) == 0 {
		fmt.Println("no changes detected")
		return
	}
	if len(result.Impacted) == 0 {
		fmt.Println("no impacted tests detected")
		return
	}

	fmt.Printf("impacted test modules (%d):\n", len(result.Impacted))
	for _, test := range result.Impacted {
		switch test.Attribution {
		case types.AttributionStatic:
			fmt.Printf("  %-10s %s (distance %d)\n", test.Attribution, test.Path, test.Distance)
		case types.AttributionFallback:
			fmt.Printf("  %-10s %s (score %d)\n", test.Attribution, test.Path, test.Score)
		default:
			fmt.Printf("  %-10s %s\n", test.Attribution, test.Path)
		}
	}
}

func printPlanJSON(cfg *config.Config, changed []string, result *types.ImpactResult) error {
	out := PlanOutput{
		Root:          cfg.Root,
		Changed:       changed,
		Impacted:      result.Impacted,
		Warnings:      result.Warnings,
		Capped:        result.Capped,
		CappedAt:      result.CappedAt,
		ParseFailures: result.ParseFailures,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
