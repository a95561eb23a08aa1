package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"flipcheck/internal/app"
)

var (
	ingestUser      string
	ingestListingID string
	ingestTitle     string
	ingestURL       string
	ingestAsking    string
	ingestEstLow    string
	ingestEstHigh   string
	ingestEstAvg    string
	ingestNotes     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Save a deal for tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestTitle == "" && ingestListingID == "" {
			return errors.New("at least one of --title or --listing is required")
		}

		opts := app.IngestOptions{
			UserID:            ingestUser,
			ExternalListingID: ingestListingID,
			Title:             ingestTitle,
			SourceURL:         ingestURL,
			AskingPrice:       ingestAsking,
			EstimateLow:       ingestEstLow,
			EstimateHigh:      ingestEstHigh,
			EstimateAvg:       ingestEstAvg,
			Notes:             ingestNotes,
		}

		return getApp().Ingest(cmd.Context(), opts)
	},
}

var (
	soldUser     string
	soldDealID   int64
	soldPurchase string
	soldPrice    string
)

var soldCmd = &cobra.Command{
	Use:   "sold",
	Short: "Record a deal as sold and compute actual profit",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SoldOptions{
			UserID:        soldUser,
			DealID:        soldDealID,
			PurchasePrice: soldPurchase,
			SoldPrice:     soldPrice,
		}

		return getApp().Sold(cmd.Context(), opts)
	},
}

var (
	dealsUser  string
	dealsLimit int
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Display recently saved deals",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dealsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.DealsOptions{
			UserID: dealsUser,
			Limit:  dealsLimit,
		}

		return getApp().Deals(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUser, "user", "", "User ID the deal belongs to")
	ingestCmd.Flags().StringVar(&ingestListingID, "listing", "", "External listing ID for idempotent saves")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "Deal title")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Source listing URL")
	ingestCmd.Flags().StringVar(&ingestAsking, "asking", "", "Seller's asking price")
	ingestCmd.Flags().StringVar(&ingestEstLow, "estimate-low", "", "Low resale estimate")
	ingestCmd.Flags().StringVar(&ingestEstHigh, "estimate-high", "", "High resale estimate")
	ingestCmd.Flags().StringVar(&ingestEstAvg, "estimate-avg", "", "Average resale estimate")
	ingestCmd.Flags().StringVar(&ingestNotes, "notes", "", "Free-form notes")

	soldCmd.Flags().StringVar(&soldUser, "user", "", "User ID the deal belongs to")
	soldCmd.Flags().Int64Var(&soldDealID, "deal", 0, "Deal ID to mark sold")
	soldCmd.Flags().StringVar(&soldPurchase, "purchase", "", "Actual purchase price (defaults to the deal's stored price)")
	soldCmd.Flags().StringVar(&soldPrice, "sold", "", "Realized sale price")

	dealsCmd.Flags().StringVar(&dealsUser, "user", "", "User ID to list deals for")
	dealsCmd.Flags().IntVar(&dealsLimit, "limit", 20, "Number of deals to display")
}
