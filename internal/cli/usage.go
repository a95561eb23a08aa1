package cli

import (
	"github.com/spf13/cobra"

	"flipcheck/internal/app"
)

var usageUser string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Display current quota consumption for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.UsageOptions{
			UserID: usageUser,
		}

		return getApp().Usage(cmd.Context(), opts)
	},
}

func init() {
	usageCmd.Flags().StringVar(&usageUser, "user", "", "User ID to report on")
}
