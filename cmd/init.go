package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardgrade/slabgen/internal/config"
	"github.com/cardgrade/slabgen/internal/render"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file, starter templates and the data directory",
	Long: `Init writes slabgen.toml with the default layout, creates the data and static
directories, and writes starter card and index templates. Existing files are
left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			if err := config.WriteDefaultConfig(cfgFile); err != nil {
				return err
			}
			fmt.Fprintln(out, "Config file initialized at:", cfgFile)
		} else {
			fmt.Fprintln(out, "Config file already exists:", cfgFile)
		}

		for _, dir := range []string{cfg.DataDir, cfg.StaticDir} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("error creating %s: %w", dir, err)
			}
		}
		fmt.Fprintln(out, "Put CSV or JSON card records in:", cfg.DataDir)

		templates := []struct {
			path    string
			content string
		}{
			{cfg.CardTemplate, render.DefaultCardTemplate},
			{cfg.IndexTemplate, render.DefaultIndexTemplate},
		}
		for _, tpl := range templates {
			if _, err := os.Stat(tpl.path); err == nil {
				fmt.Fprintln(out, "Template already exists:", tpl.path)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(tpl.path), 0755); err != nil {
				return fmt.Errorf("error creating template directory: %w", err)
			}
			if err := os.WriteFile(tpl.path, []byte(tpl.content), 0644); err != nil {
				return fmt.Errorf("error writing template: %w", err)
			}
			fmt.Fprintln(out, "Template written:", tpl.path)
		}
		return nil
	},
}
