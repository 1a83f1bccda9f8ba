package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-testsight/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a project configuration interactively",
	Long: `Guides you through setting up gts for a repository and writes the
answers to .gts/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		if root == "" {
			found, err := config.FindRepoRoot(".")
			if err != nil {
				return fmt.Errorf("locating repository root: %w (use --root)", err)
			}
			root = found
		}
		return runInit(root)
	},
}

func runInit(root string) error {
	cfg := config.DefaultConfig()
	cfg.Root = root

	if _, err := os.Stat(config.ProjectPath(root)); err == nil {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("A config file already exists. Overwrite it?").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			return nil
		}
	}

	sourceRoots := strings.Join(cfg.SourceRoots, ", ")
	testCommand := strings.Join(cfg.TestCommand, " ")
	diffMode := cfg.Diff.Mode
	includeUntracked := cfg.Diff.IncludeUntracked
	useCache := cfg.Cache

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Source roots").
				Description("Top-level directories stripped from module names, comma-separated").
				Placeholder("src").
				Value(&sourceRoots),
			huh.NewInput().
				Title("Test command").
				Description("Impacted test files are appended to this command").
				Placeholder("pytest -q --maxfail=1").
				Value(&testCommand),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Change detection").
				Description("Where the changed-file list comes from").
				Options(
					huh.NewOption("Staged changes (git diff --cached)", config.DiffStaged),
					huh.NewOption("Unstaged changes (git diff)", config.DiffUnstaged),
					huh.NewOption("Revision range (git diff base..head)", config.DiffRange),
				).
				Value(&diffMode),
			huh.NewConfirm().
				Title("Include untracked files in the change set?").
				Value(&includeUntracked),
			huh.NewConfirm().
				Title("Cache the module index between runs?").
				Value(&useCache),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	cfg.SourceRoots = splitComma(sourceRoots)
	cfg.TestCommand = strings.Fields(testCommand)
	cfg.Diff.Mode = diffMode
	cfg.Diff.IncludeUntracked = includeUntracked
	cfg.Cache = useCache

	if cfg.Diff.Mode == config.DiffRange {
		base := "main"
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Base revision").
					Placeholder("main").
					Value(&base),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		cfg.Diff.Base = base
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(root); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", config.ProjectPath(root))
	return nil
}

func splitComma(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
