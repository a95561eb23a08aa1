package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"flipcheck/internal/alerting"
	"flipcheck/internal/ebay"
	"flipcheck/internal/pricing"
)

// Simulate pushes a fabricated high-margin alert through the configured
// notification channels. Useful for verifying delivery without real data.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no notification channel configured")
	}

	query := pricing.NormalizeQuery(opts.Query)
	if len(query) < pricing.MinQueryLength {
		return errors.New("--query is required")
	}

	asking, err := decimal.NewFromString(opts.AskingPrice)
	if err != nil {
		return fmt.Errorf("invalid --asking: %w", err)
	}
	low, err := decimal.NewFromString(opts.Low)
	if err != nil {
		return fmt.Errorf("invalid --low: %w", err)
	}
	high, err := decimal.NewFromString(opts.High)
	if err != nil {
		return fmt.Errorf("invalid --high: %w", err)
	}

	calc := pricing.NewProfitCalculator(a.Config.Pricing.EstimateFeeMultiplier, a.Config.Pricing.ActualNetMultiplier)
	est := calc.Estimate(asking, pricing.Stats{Low: &low, High: &high})
	if est == nil {
		return errors.New("could not compute a profit estimate")
	}

	a.Logger.Info().
		Str("query", query).
		Str("profit_low", est.Low.String()).
		Str("profit_high", est.High.String()).
		Msg("dispatching simulated alert")

	return notifier.Notify(ctx, alerting.Notification{
		Query:           query,
		Source:          "simulated",
		AskingPrice:     asking,
		AdjustedLow:     low,
		AdjustedHigh:    high,
		EstProfitLow:    est.Low,
		EstProfitHigh:   est.High,
		ThresholdProfit: decimal.NewFromFloat(a.Config.Alerting.ProfitThreshold),
		SearchURL:       ebay.SearchURL(query, false),
		Channels:        a.Config.Alerting.Channels,
		FoundAt:         time.Now().UTC(),
	})
}
