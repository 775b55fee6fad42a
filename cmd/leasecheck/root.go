package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootOptions holds global flags and the logger shared by subcommands
type rootOptions struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "leasecheck",
		Short: "Flag risky clauses in BC residential tenancy agreements",
		Long: `leasecheck reviews a residential tenancy agreement against the British Columbia
Residential Tenancy Act and reports a summary, key details, flagged clauses,
an overall risk score and recommendations.

Remote analysis uses the Gemini API (GEMINI_API_KEY). When every endpoint
variant fails, the built-in keyword pattern library is used instead.

This tool does not give legal advice.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logs go to stderr so JSON output stays clean
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if opts.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newTaxonomyCmd(),
		newPatternsCmd(),
	)
	return rootCmd
}
