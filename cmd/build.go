package cmd

import (
	"fmt"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cardgrade/slabgen/internal/build"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render every card page and the index",
	Long: `Build clears the output directory, copies static assets into it, loads all
records, and renders one page per valid record plus the index page.

Records that fail validation are skipped and reported; the build still succeeds.
A missing card template or an unparsable aggregate JSON file aborts the build.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := build.Run(cfg, logger)
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, skip := range summary.Skipped {
			id := skip.ID
			if id == "" {
				id = "(no id)"
			}
			colorize.New(colorize.FgRed).Fprintf(out, "✗ skipped %s from %s\n", id, skip.Source)
			for _, reason := range skip.Reasons {
				fmt.Fprintf(out, "    - %s\n", reason)
			}
		}
		if summary.Warnings > 0 {
			colorize.New(colorize.FgYellow).Fprintf(out, "%d warnings (see log)\n", summary.Warnings)
		}
		if summary.FallbackIndex {
			colorize.New(colorize.FgYellow).Fprintln(out, "index template missing, used built-in fallback")
		}

		colorize.New(colorize.FgGreen).Fprintf(out, "✓ built %d cards", summary.Built)
		fmt.Fprintf(out, " → %s\n", summary.IndexPath)
		return nil
	},
}
