package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-testsight/pkg/depgraph"
	"github.com/l3aro/go-testsight/pkg/types"
)

// DepsOutput is the JSON envelope of the deps command.
type DepsOutput struct {
	Module     types.ModuleID   `json:"module"`
	Path       string           `json:"path"`
	Imports    []types.ModuleID `json:"imports,omitempty"`
	Dependents []DepEntry       `json:"dependents,omitempty"`
	Capped     bool             `json:"capped,omitempty"`
}

// DepEntry is one dependent with its distance from the module.
type DepEntry struct {
	Module   types.ModuleID `json:"module"`
	Distance int            `json:"distance"`
}

// depsCmd represents the deps command
var depsCmd = &cobra.Command{
	Use:   "deps <module-or-path>",
	Short: "Inspect a module's dependencies and dependents",
	Long: `Shows what a module imports and which modules import it. The
argument is a dotted module name (billing.service) or a root-relative
path (src/billing/service.py). With --transitive the dependents are
walked through the whole graph.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
			cfg.Cache = false
		}

		idx, err := buildIndex(cfg)
		if err != nil {
			return err
		}

		rec, ok := idx.Lookup(types.ModuleID(args[0]))
		if !ok {
			rec, ok = idx.ByPath(args[0])
		}
		if !ok {
			return fmt.Errorf("module %q not found in index", args[0])
		}

		graph := depgraph.Build(idx.Records())
		out := DepsOutput{
			Module:  rec.ID,
			Path:    rec.Path,
			Imports: graph.Dependencies(rec.ID),
		}

		if transitive, _ := cmd.Flags().GetBool("transitive"); transitive {
			walk := graph.ReachableDependents(rec.ID, depgraph.TraversalOptions{
				MaxDepth:  cfg.Traversal.MaxDepth,
				MaxFanout: cfg.Traversal.MaxFanout,
			})
			for _, dep := range walk.Dependents {
				out.Dependents = append(out.Dependents, DepEntry{Module: dep.ID, Distance: dep.Distance})
			}
			out.Capped = walk.Capped
		} else {
			for _, id := range graph.DependentsOf(rec.ID) {
				out.Dependents = append(out.Dependents, DepEntry{Module: id, Distance: 1})
			}
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Printf("%s (%s)\n", out.Module, out.Path)
		fmt.Printf("imports (%d):\n", len(out.Imports))
		for _, id := range out.Imports {
			fmt.Printf("  %s\n", id)
		}
		fmt.Printf("dependents (%d):\n", len(out.Dependents))
		for _, dep := range out.Dependents {
			fmt.Printf("  %s (distance %d)\n", dep.Module, dep.Distance)
		}
		if out.Capped {
			fmt.Println("note: traversal capped; dependent list may be incomplete")
		}
		return nil
	},
}

func init() {
	depsCmd.Flags().Bool("transitive", false, "Walk dependents transitively")
	depsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	depsCmd.Flags().Bool("no-cache", false, "Ignore and skip the index snapshot cache")
}
