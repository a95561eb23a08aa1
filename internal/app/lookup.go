package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"flipcheck/internal/service"
)

// Lookup runs one price lookup and prints the result.
func (a *App) Lookup(ctx context.Context, opts LookupOptions) error {
	if opts.UserID == "" {
		return errors.New("--user is required")
	}

	asking, err := parseOptionalDecimal(opts.AskingPrice)
	if err != nil {
		return fmt.Errorf("invalid --asking: %w", err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	result, err := svc.LookupPrice(ctx, service.LookupRequest{
		UserID:      opts.UserID,
		Query:       opts.Query,
		Category:    opts.Category,
		AskingPrice: asking,
	})
	if err != nil {
		return err
	}

	printLookupResult(result)
	return nil
}

func printLookupResult(result service.LookupResult) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(writer, "Query:\t%s\n", result.Query)
	fmt.Fprintf(writer, "Source:\t%s\n", result.Source)
	fmt.Fprintf(writer, "Cached:\t%t\n", result.Cached)
	fmt.Fprintf(writer, "Samples:\t%d\n", result.Prices.SampleCount)
	fmt.Fprintf(writer, "Low:\t%s\n", formatDecimalPtr(result.Prices.Low))
	fmt.Fprintf(writer, "High:\t%s\n", formatDecimalPtr(result.Prices.High))
	fmt.Fprintf(writer, "Average:\t%s\n", formatDecimalPtr(result.Prices.Avg))
	fmt.Fprintf(writer, "Median:\t%s\n", formatDecimalPtr(result.Prices.Median))

	if result.EstimatedProfit != nil {
		fmt.Fprintf(writer, "Est. profit:\t%s - %s\n",
			formatDecimal(result.EstimatedProfit.Low, 2),
			formatDecimal(result.EstimatedProfit.High, 2))
	}

	if result.Usage.Limit < 0 {
		fmt.Fprintf(writer, "Lookups used:\t%d (unlimited)\n", result.Usage.Used)
	} else {
		fmt.Fprintf(writer, "Lookups used:\t%d of %d\n", result.Usage.Used, result.Usage.Limit)
	}
	fmt.Fprintf(writer, "Browse:\t%s\n", result.EbaySearchURL)

	if len(result.Samples) > 0 {
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "Title\tPrice\tShipping\tCondition")
		for _, sample := range result.Samples {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
				sanitizeInline(sample.Title),
				formatDecimal(sample.Price, 2),
				formatDecimal(sample.Shipping, 2),
				sample.Condition,
			)
		}
	}

	writer.Flush()
}

func parseOptionalDecimal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func formatDecimalPtr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return formatDecimal(*d, 2)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
