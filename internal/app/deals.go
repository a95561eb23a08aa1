package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"flipcheck/internal/service"
	"flipcheck/internal/storage"
)

// Ingest saves one deal for the user and prints the stored row.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	if opts.UserID == "" {
		return errors.New("--user is required")
	}

	req := service.IngestRequest{
		UserID:    opts.UserID,
		Title:     opts.Title,
		SourceURL: opts.SourceURL,
		Notes:     opts.Notes,
	}
	if opts.ExternalListingID != "" {
		id := opts.ExternalListingID
		req.ExternalListingID = &id
	}

	var err error
	if req.AskingPrice, err = parseOptionalDecimal(opts.AskingPrice); err != nil {
		return fmt.Errorf("invalid --asking: %w", err)
	}
	if req.EstimateLow, err = parseOptionalDecimal(opts.EstimateLow); err != nil {
		return fmt.Errorf("invalid --estimate-low: %w", err)
	}
	if req.EstimateHigh, err = parseOptionalDecimal(opts.EstimateHigh); err != nil {
		return fmt.Errorf("invalid --estimate-high: %w", err)
	}
	if req.EstimateAvg, err = parseOptionalDecimal(opts.EstimateAvg); err != nil {
		return fmt.Errorf("invalid --estimate-avg: %w", err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	deal, created, err := svc.IngestDeal(ctx, req)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(os.Stdout, "deal %d saved\n", deal.ID)
	} else {
		fmt.Fprintf(os.Stdout, "deal %d updated (already saved)\n", deal.ID)
	}
	return nil
}

// Sold marks a deal as sold and prints the realized profit.
func (a *App) Sold(ctx context.Context, opts SoldOptions) error {
	if opts.UserID == "" {
		return errors.New("--user is required")
	}
	if opts.DealID <= 0 {
		return errors.New("--deal is required")
	}

	sold, err := parseOptionalDecimal(opts.SoldPrice)
	if err != nil {
		return fmt.Errorf("invalid --sold: %w", err)
	}
	if sold == nil {
		return errors.New("--sold is required")
	}

	purchase := decimal.Zero
	if p, err := parseOptionalDecimal(opts.PurchasePrice); err != nil {
		return fmt.Errorf("invalid --purchase: %w", err)
	} else if p != nil {
		purchase = *p
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	deal, err := svc.RecordSale(ctx, opts.UserID, opts.DealID, purchase, *sold)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "deal %d sold for %s, actual profit %s\n",
		deal.ID,
		formatDecimalPtr(deal.SoldPrice),
		formatDecimalPtr(deal.ActualProfit),
	)
	return nil
}

// Deals prints the user's recent saved deals.
func (a *App) Deals(ctx context.Context, opts DealsOptions) error {
	if opts.UserID == "" {
		return errors.New("--user is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	deals, err := store.ListRecentDeals(ctx, opts.UserID, opts.Limit)
	if err != nil {
		return err
	}
	if len(deals) == 0 {
		fmt.Fprintln(os.Stdout, "no deals found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSaved (UTC)\tStatus\tTitle\tAsking\tEst. Profit\tActual Profit")

	for _, deal := range deals {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			deal.ID,
			deal.CreatedAt.UTC().Format(time.RFC3339),
			deal.Status,
			sanitizeInline(deal.Title),
			formatDecimalPtr(deal.AskingPrice),
			formatProfitRange(deal),
			formatDecimalPtr(deal.ActualProfit),
		)
	}

	writer.Flush()
	return nil
}

func formatProfitRange(deal storage.Deal) string {
	if deal.EstimatedProfitLow == nil {
		return "-"
	}
	if deal.EstimatedProfitHigh == nil || deal.EstimatedProfitHigh.Equal(*deal.EstimatedProfitLow) {
		return formatDecimal(*deal.EstimatedProfitLow, 2)
	}
	return fmt.Sprintf("%s - %s",
		formatDecimal(*deal.EstimatedProfitLow, 2),
		formatDecimal(*deal.EstimatedProfitHigh, 2))
}
