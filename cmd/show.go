package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cardgrade/slabgen/internal/build"
	"github.com/cardgrade/slabgen/internal/card"
	"github.com/cardgrade/slabgen/internal/grade"
	"github.com/cardgrade/slabgen/internal/numeric"
)

var showCmd = &cobra.Command{
	Use:   "show [card_id]",
	Short: "Display the computed grades of one card",
	Long: `Show loads the records, computes the grades for the card with the given id and
prints them with a bar per subgrade, the way the detail page presents them.

Examples:
  slabgen show griffey-89-ud-1
  slabgen show --config ./site/slabgen.toml jordan-86-fleer-57`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cardID := args[0]

		results, err := build.LoadRecords(cfg, logger)
		if err != nil {
			return fmt.Errorf("error loading records: %w", err)
		}

		for _, rec := range results {
			if rec.Card.ID != cardID || rec.Duplicate {
				continue
			}
			displayCard(cmd.OutOrStdout(), rec.Card, grade.Compute(rec.Card), terminalWidth())
			for _, e := range rec.Results.Errors {
				colorize.New(colorize.FgRed).Fprintf(cmd.OutOrStdout(), "  error: %s\n", e)
			}
			for _, w := range rec.Results.Warnings {
				colorize.New(colorize.FgYellow).Fprintf(cmd.OutOrStdout(), "  warning: %s\n", w)
			}
			return nil
		}
		return fmt.Errorf("card not found: %s", cardID)
	},
}

// terminalWidth returns the stdout width, or 80 when it is not a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// displayCard prints the identity block, overall grade and both sides
func displayCard(out io.Writer, c card.Card, res grade.Result, width int) {
	label := colorize.New(colorize.FgCyan).SprintFunc()
	value := colorize.New(colorize.FgHiWhite).SprintFunc()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s %s\n", label("Card:  "), value(c.Player))
	fmt.Fprintf(out, "  %s %s\n", label("ID:    "), value(c.ID))
	if line := strings.TrimSpace(strings.Join([]string{c.Set, numberLabel(c.Number), c.Variant, c.Serial}, " ")); line != "" {
		fmt.Fprintf(out, "  %s %s\n", label("Set:   "), value(line))
	}
	if c.GradedAt != "" {
		fmt.Fprintf(out, "  %s %s\n", label("Graded:"), value(c.GradedAt))
	}

	// label column (2 + 11) + grade (5) + spacing, the rest goes to the bar
	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 50 {
		barWidth = 50
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-11s %5s %s %3d%%\n", "Overall", numeric.Format1(res.Overall), bar(res.OverallPct, barWidth), res.OverallPct)

	for _, name := range []string{"front", "back"} {
		side := res.Side(name)
		raw := c.Subgrades.Side(name)

		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s %s\n", label(strings.ToUpper(name[:1])+name[1:]), value(numeric.Format1(side.Average)))

		values := map[string]card.Value{
			"surface":   side.Surface,
			"centering": side.Centering,
			"corners":   side.Corners,
			"edges":     side.Edges,
		}
		for _, aspect := range card.Aspects {
			shown := "-"
			if v, ok := values[aspect].Get(); ok {
				shown = numeric.Format1(v)
			}
			pct := side.Pcts[aspect]
			fmt.Fprintf(out, "    %-9s %5s %s %3d%%\n", aspect, shown, bar(pct, barWidth), pct)
			if note := raw.Remarks[aspect]; note != "" {
				for _, line := range wrapText(note, width-16) {
					fmt.Fprintf(out, "              %s\n", colorize.New(colorize.Faint).Sprint(line))
				}
			}
		}
	}

	if len(c.Population) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s\n", label("Population:"))
		for _, svc := range card.Services {
			pop, ok := c.Population[svc]
			if !ok {
				continue
			}
			count, gem := "-", "-"
			if v, ok := pop.Count.Get(); ok {
				count = fmt.Sprintf("%.0f", v)
			}
			if v, ok := pop.GemRate.Get(); ok {
				gem = fmt.Sprintf("%.0f%%", v)
			}
			fmt.Fprintf(out, "    %-4s pop %-8s gem %s\n", strings.ToUpper(svc), count, gem)
		}
	}
	fmt.Fprintln(out)
}

func numberLabel(n string) string {
	if n == "" {
		return ""
	}
	return "#" + n
}

// bar draws pct (0-100) as a block bar of the given width, colored by band
func bar(pct, width int) string {
	filled := numeric.Clamp(pct, 0, 100) * width / 100
	b := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	switch {
	case pct >= 90:
		return colorize.GreenString(b)
	case pct >= 70:
		return colorize.YellowString(b)
	default:
		return colorize.RedString(b)
	}
}

// wrapText wraps text to a specified width
func wrapText(text string, width int) []string {
	if width < 10 {
		width = 40
	}

	var result []string
	var currentLine string
	words := strings.Fields(text)

	if len(words) == 0 {
		return []string{""}
	}

	for _, word := range words {
		if len(currentLine) == 0 {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result = append(result, currentLine)
			currentLine = word
		}
	}

	if currentLine != "" {
		result = append(result, currentLine)
	}

	return result
}
