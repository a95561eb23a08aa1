package pricing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"flipcheck/internal/tier"
)

// MinQueryLength is the shortest normalized query accepted by a lookup.
const MinQueryLength = 2

// NormalizeQuery trims and lowercases a query. The normalized form is the
// only form ever used as a cache or history key.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Resolver selects a data source by tier, queries the listing provider, and
// aggregates the result.
type Resolver struct {
	provider ListingProvider
	logger   zerolog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(provider ListingProvider, logger zerolog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve fetches listings for the query and computes trimmed statistics.
// Provider failures degrade to empty stats rather than propagating: the
// caller surfaces "no data", not an outage.
func (r *Resolver) Resolve(ctx context.Context, query, category string, t tier.Tier) Stats {
	plan := tier.PlanFor(t)

	listings, err := r.provider.Search(ctx, NormalizeQuery(query), category, plan.SampleLimit)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("query", NormalizeQuery(query)).
			Str("source", plan.Source).
			Msg("provider search failed; returning empty stats")
		return EmptyStats(plan.Source)
	}

	return Compute(plan.Source, listings)
}

// ApplyDiscount haircuts active-listing prices toward realized sale price.
// Higher tiers get a smaller discount because their source is closer to what
// items actually sell for. Sample count and raw samples pass through.
func ApplyDiscount(t tier.Tier, stats Stats) Stats {
	multiplier := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(tier.PlanFor(t).Discount))

	stats.Low = roundPtr(stats.Low, multiplier)
	stats.High = roundPtr(stats.High, multiplier)
	stats.Avg = roundPtr(stats.Avg, multiplier)
	stats.Median = roundPtr(stats.Median, multiplier)
	stats.IsEstimate = true
	return stats
}
