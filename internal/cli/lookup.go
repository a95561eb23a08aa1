package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"flipcheck/internal/app"
)

var (
	lookupUser     string
	lookupQuery    string
	lookupCategory string
	lookupAsking   string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up market prices for a search query",
	RunE: func(cmd *cobra.Command, args []string) error {
		if lookupQuery == "" {
			return errors.New("--query is required")
		}

		opts := app.LookupOptions{
			UserID:      lookupUser,
			Query:       lookupQuery,
			Category:    lookupCategory,
			AskingPrice: lookupAsking,
		}

		return getApp().Lookup(cmd.Context(), opts)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupUser, "user", "", "User ID the lookup is charged to")
	lookupCmd.Flags().StringVar(&lookupQuery, "query", "", "Search query, e.g. \"iphone 13 128gb\"")
	lookupCmd.Flags().StringVar(&lookupCategory, "category", "", "Optional marketplace category ID")
	lookupCmd.Flags().StringVar(&lookupAsking, "asking", "", "Seller's asking price for profit estimation")
}
