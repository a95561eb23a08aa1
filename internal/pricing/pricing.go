package pricing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Listing is a single provider-sourced price sample.
type Listing struct {
	Title     string
	Price     decimal.Decimal
	Shipping  decimal.Decimal
	Condition string
	URL       string
	Image     string
}

// ListingProvider searches a marketplace for active listings. Implementations
// may fail with network or provider errors; callers degrade to empty stats.
type ListingProvider interface {
	Search(ctx context.Context, query, category string, limit int) ([]Listing, error)
}

// Stats aggregates listing prices for a query. All monetary fields are nil
// when SampleCount is zero.
type Stats struct {
	Source      string
	SampleCount int
	Low         *decimal.Decimal
	High        *decimal.Decimal
	Avg         *decimal.Decimal
	Median      *decimal.Decimal
	Samples     []Listing
	IsEstimate  bool
}

// maxCachedSamples caps the raw samples carried alongside the stats.
const maxCachedSamples = 10

// EmptyStats is the "no data" result. Not an error: provider outages and
// zero-hit queries both land here.
func EmptyStats(source string) Stats {
	return Stats{Source: source, Samples: []Listing{}}
}

// Compute aggregates listings into trimmed price statistics.
//
// Effective price is listed price plus shipping. Non-positive prices are
// dropped. Low and high are the 10th and 90th percentile elements so that a
// single junk or gold-plated listing cannot stretch the displayed range;
// median and avg are computed over the full filtered set.
func Compute(source string, listings []Listing) Stats {
	prices := make([]decimal.Decimal, 0, len(listings))
	for _, l := range listings {
		p := l.Price.Add(l.Shipping)
		if p.IsPositive() {
			prices = append(prices, p)
		}
	}
	if len(prices) == 0 {
		return EmptyStats(source)
	}

	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	n := len(prices)
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	avg := round2(sum.Div(decimal.NewFromInt(int64(n))))
	median := round2(prices[(n-1)/2])

	lowIdx := n / 10
	highIdx := n * 9 / 10
	if highIdx >= n {
		highIdx = n - 1
	}
	low := round2(prices[lowIdx])
	high := round2(prices[highIdx])

	samples := listings
	if len(samples) > maxCachedSamples {
		samples = samples[:maxCachedSamples]
	}
	rounded := make([]Listing, len(samples))
	for i, s := range samples {
		s.Price = round2(s.Price)
		s.Shipping = round2(s.Shipping)
		rounded[i] = s
	}

	return Stats{
		Source:      source,
		SampleCount: n,
		Low:         &low,
		High:        &high,
		Avg:         &avg,
		Median:      &median,
		Samples:     rounded,
	}
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func roundPtr(d *decimal.Decimal, multiplier decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := round2(d.Mul(multiplier))
	return &v
}
