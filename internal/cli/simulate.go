package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"flipcheck/internal/app"
)

var (
	simulateQuery  string
	simulateAsking string
	simulateLow    string
	simulateHigh   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Dispatch a fabricated profit alert to verify delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateAsking == "" || simulateLow == "" || simulateHigh == "" {
			return errors.New("--asking, --low, and --high are required")
		}

		opts := app.SimulateOptions{
			Query:       simulateQuery,
			AskingPrice: simulateAsking,
			Low:         simulateLow,
			High:        simulateHigh,
		}

		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateQuery, "query", "", "Search query to show in the alert")
	simulateCmd.Flags().StringVar(&simulateAsking, "asking", "", "Asking price")
	simulateCmd.Flags().StringVar(&simulateLow, "low", "", "Adjusted low resale price")
	simulateCmd.Flags().StringVar(&simulateHigh, "high", "", "Adjusted high resale price")
}
