package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-testsight/internal/config"
	"github.com/l3aro/go-testsight/internal/log"
	"github.com/l3aro/go-testsight/pkg/cache"
	"github.com/l3aro/go-testsight/pkg/depgraph"
	"github.com/l3aro/go-testsight/pkg/indexer"
	"github.com/l3aro/go-testsight/pkg/resolver"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gts",
	Short: "go-testsight - Test impact analysis for Python repositories",
	Long: `go-testsight maps changed source files to the tests they affect.

It indexes a Python repository, builds its import graph, and resolves a
git diff (or an explicit file list) into the minimal set of impacted
test modules.

Commands:
  plan        Show the impacted tests for the current changes
  run         Resolve the impacted tests and execute the test command
  deps        Inspect a module's dependencies and dependents
  init        Create a project configuration interactively

Use "gts [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("root", "", "Repository root (default: nearest git root)")
	RootCmd.PersistentFlags().String("config", "", "Config file (default: <root>/.gts/config.yaml)")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")

	RootCmd.AddCommand(planCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(depsCmd)
	RootCmd.AddCommand(initCmd)
}

// loadConfig resolves the repository root, loads the layered
// configuration and applies the shared flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		found, err := config.FindRepoRoot(".")
		if err != nil {
			return nil, fmt.Errorf("locating repository root: %w (use --root)", err)
		}
		root = found
	}

	var cfg *config.Config
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
		if err == nil && cfg.Root == "" {
			cfg.Root = root
		}
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log.Default().SetLevel(log.DebugLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// addDiffFlags registers the change-detection flags shared by plan/run.
func addDiffFlags(cmd *cobra.Command) {
	cmd.Flags().String("diff", "", "Diff mode: staged, unstaged, range, custom")
	cmd.Flags().String("base", "", "Base revision for range mode")
	cmd.Flags().String("head", "", "Head revision for range mode (default HEAD)")
	cmd.Flags().Bool("include-untracked", false, "Include untracked files in the change set")
	cmd.Flags().StringArray("changed", nil, "Changed file (repeatable); skips git entirely")
	cmd.Flags().Int("max-depth", 0, "Maximum traversal depth (0 = unbounded)")
	cmd.Flags().Int("max-fanout", 0, "Skip expanding modules with more dependents than this (0 = unbounded)")
	cmd.Flags().Int("threshold", 0, "Fallback token score threshold (0 = configured value)")
	cmd.Flags().Bool("no-cache", false, "Ignore and skip the index snapshot cache")
}

// applyDiffFlags folds the command-line flags into the configuration.
func applyDiffFlags(cmd *cobra.Command, cfg *config.Config) {
	if mode, _ := cmd.Flags().GetString("diff"); mode != "" {
		cfg.Diff.Mode = mode
	}
	if base, _ := cmd.Flags().GetString("base"); base != "" {
		cfg.Diff.Mode = config.DiffRange
		cfg.Diff.Base = base
	}
	if head, _ := cmd.Flags().GetString("head"); head != "" {
		cfg.Diff.Head = head
	}
	if untracked, _ := cmd.Flags().GetBool("include-untracked"); untracked {
		cfg.Diff.IncludeUntracked = true
	}
	if threshold, _ := cmd.Flags().GetInt("threshold"); threshold > 0 {
		cfg.Tokens.Threshold = threshold
	}
	if depth, _ := cmd.Flags().GetInt("max-depth"); depth > 0 {
		cfg.Traversal.MaxDepth = depth
	}
	if fanout, _ := cmd.Flags().GetInt("max-fanout"); fanout > 0 {
		cfg.Traversal.MaxFanout = fanout
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache = false
	}
}

// buildIndex builds (or loads) the module index for the configuration.
func buildIndex(cfg *config.Config) (*indexer.Index, error) {
	idxCfg := cfg.IndexerConfig()
	if cfg.Cache {
		idxCfg.Cache = cache.NewStore(config.CacheDir(cfg.Root))
	}
	logger := log.Default()
	logger.Debug("building index", "root", cfg.Root, "cache", cfg.Cache)

	idx, err := indexer.Build(idxCfg)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	logger.Debug("index ready", "modules", idx.Len(), "tests", len(idx.TestModules()))
	return idx, nil
}

// newResolver wires the resolver from the configuration and index.
func newResolver(cfg *config.Config, idx *indexer.Index) *resolver.Resolver {
	return resolver.New(idx, resolver.Options{
		Traversal: depgraph.TraversalOptions{
			MaxDepth:  cfg.Traversal.MaxDepth,
			MaxFanout: cfg.Traversal.MaxFanout,
		},
		Tokens: cfg.Tokens,
	})
}
