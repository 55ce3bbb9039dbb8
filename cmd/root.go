package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cardgrade/slabgen/internal/config"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "slabgen",
	Short: "Static site generator for graded trading cards",
	Long: `slabgen turns trading-card grading records (CSV and/or JSON) into a static site:
one detail page per card plus an index page listing every card.

Paths default to data/, templates/, static/ and dist/ in the working directory
and can be changed in slabgen.toml or with SLABGEN_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.DisableStacktrace = true
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigFile, "Path to the config file")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every page written")

	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(initCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}
