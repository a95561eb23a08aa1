package cli

import (
	"github.com/spf13/cobra"

	"flipcheck/internal/app"
)

var (
	warmQueries  string
	warmCategory string
	warmTier     string
	warmDryRun   bool
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-populate the price cache from a query list",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.WarmOptions{
			QueriesPath: warmQueries,
			Category:    warmCategory,
			Tier:        warmTier,
			DryRun:      warmDryRun,
		}

		return getApp().Warm(cmd.Context(), opts)
	},
}

func init() {
	warmCmd.Flags().StringVar(&warmQueries, "queries", "", "Path to a file with one search query per line")
	warmCmd.Flags().StringVar(&warmCategory, "category", "", "Optional marketplace category ID")
	warmCmd.Flags().StringVar(&warmTier, "tier", "free", "Tier whose source and sample limit to warm with")
	warmCmd.Flags().BoolVar(&warmDryRun, "dry-run", false, "Resolve prices without writing the cache")
}
