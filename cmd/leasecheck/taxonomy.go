package main

import (
	"fmt"
	"text/tabwriter"

	"leaseguard-backend/models"
	"leaseguard-backend/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newTaxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "List clause categories and severities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tLABEL")
			for _, c := range models.ClauseCategories {
				fmt.Fprintf(w, "%s\t%s\n", c, c.Label())
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "SEVERITY\tRISK WEIGHT")
			for _, s := range models.Severities {
				fmt.Fprintf(w, "%s\t%d\n", s, s.Weight())
			}
			return w.Flush()
		},
	}
}

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the keyword pattern library as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := service.NewKeywordAnalyzer()
			if err != nil {
				return fmt.Errorf("failed to load clause patterns: %w", err)
			}

			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(map[string]any{"patterns": analyzer.Patterns()}); err != nil {
				return fmt.Errorf("failed to encode patterns: %w", err)
			}
			return encoder.Close()
		},
	}
}
