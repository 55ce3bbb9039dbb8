package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardgrade/slabgen/internal/build"
	"github.com/cardgrade/slabgen/internal/validator"
)

// recordReport is the machine-readable form of one record's validation
type recordReport struct {
	ID       string   `json:"id" yaml:"id"`
	Source   string   `json:"source" yaml:"source"`
	Origin   string   `json:"origin" yaml:"origin"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type validationReport struct {
	Records int            `json:"records" yaml:"records"`
	Valid   int            `json:"valid" yaml:"valid"`
	Invalid int            `json:"invalid" yaml:"invalid"`
	Results []recordReport `json:"results" yaml:"results"`
}

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check card records without rendering",
	Long: `Validate loads every record from the data directory and runs the same checks
the build does: a usable id and front/back images are required, and image paths
outside the image prefix or with uppercase file names produce warnings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		results, err := build.LoadRecords(cfg, logger)
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		report := newValidationReport(results)

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
		case "text", "":
			printValidationText(out, report)
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
		}

		if report.Invalid > 0 {
			return fmt.Errorf("validation failed: %d of %d records invalid", report.Invalid, report.Records)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
}

func newValidationReport(results []validator.RecordResult) validationReport {
	report := validationReport{Records: len(results), Results: make([]recordReport, 0, len(results))}
	for _, res := range results {
		valid := res.Results.Valid()
		if valid {
			report.Valid++
		} else {
			report.Invalid++
		}
		report.Results = append(report.Results, recordReport{
			ID:       res.Card.ID,
			Source:   res.Card.Source,
			Origin:   string(res.Card.Origin),
			Valid:    valid,
			Errors:   res.Results.Errors,
			Warnings: res.Results.Warnings,
		})
	}
	return report
}

func printValidationText(out io.Writer, report validationReport) {
	fmt.Fprintln(out, "Validation Results:")
	fmt.Fprintln(out, "-------------------")

	for _, rec := range report.Results {
		id := rec.ID
		if id == "" {
			id = "(no id)"
		}
		if rec.Valid {
			colorize.New(colorize.FgGreen).Fprintf(out, "✅ %s", id)
		} else {
			colorize.New(colorize.FgRed).Fprintf(out, "❌ %s", id)
		}
		fmt.Fprintf(out, " (%s)\n", rec.Source)
		for i, e := range rec.Errors {
			fmt.Fprintf(out, "   %d. %s\n", i+1, e)
		}
		for _, w := range rec.Warnings {
			colorize.New(colorize.FgYellow).Fprintf(out, "   warning: %s\n", w)
		}
	}

	fmt.Fprintf(out, "\n%d records, %d valid, %d invalid\n", report.Records, report.Valid, report.Invalid)
}
