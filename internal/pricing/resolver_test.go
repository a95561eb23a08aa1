package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"flipcheck/internal/tier"
)

type stubProvider struct {
	listings  []Listing
	err       error
	lastQuery string
	lastLimit int
}

func (s *stubProvider) Search(ctx context.Context, query, category string, limit int) ([]Listing, error) {
	s.lastQuery = query
	s.lastLimit = limit
	return s.listings, s.err
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  Nintendo SWITCH "); got != "nintendo switch" {
		t.Fatalf("NormalizeQuery = %q", got)
	}
}

func TestResolveUsesTierPlan(t *testing.T) {
	provider := &stubProvider{listings: listingsFromPrices(10, 20, 30)}
	r := NewResolver(provider, zerolog.Nop())

	stats := r.Resolve(context.Background(), " Herman Miller Aeron ", "", tier.Pro)

	if provider.lastQuery != "herman miller aeron" {
		t.Fatalf("provider saw query %q, want normalized form", provider.lastQuery)
	}
	if provider.lastLimit != tier.PlanFor(tier.Pro).SampleLimit {
		t.Fatalf("provider limit = %d, want pro sample limit", provider.lastLimit)
	}
	if stats.Source != "ebay_active_pro" {
		t.Fatalf("source = %q", stats.Source)
	}
	if stats.SampleCount != 3 {
		t.Fatalf("sample count = %d", stats.SampleCount)
	}
}

func TestResolveProviderFailureDegrades(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider down")}
	r := NewResolver(provider, zerolog.Nop())

	stats := r.Resolve(context.Background(), "ps5", "", tier.Free)
	if stats.SampleCount != 0 {
		t.Fatalf("failure should yield empty stats, got %d samples", stats.SampleCount)
	}
	if stats.Source != "estimate" {
		t.Fatalf("source = %q, want free-tier source", stats.Source)
	}
}

func TestApplyDiscountFreeTierExample(t *testing.T) {
	stats := Stats{SampleCount: 2, Low: dec(100), High: dec(200)}
	adjusted := ApplyDiscount(tier.Free, stats)

	if !adjusted.Low.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("low = %s, want 80.00", adjusted.Low)
	}
	if !adjusted.High.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("high = %s, want 160.00", adjusted.High)
	}
	if !adjusted.IsEstimate {
		t.Fatal("adjusted stats must be marked as estimates")
	}
	if adjusted.SampleCount != 2 {
		t.Fatalf("sample count should pass through, got %d", adjusted.SampleCount)
	}
}

func TestApplyDiscountMonotonicAcrossTiers(t *testing.T) {
	base := func() Stats {
		return Stats{SampleCount: 1, Low: dec(100), High: dec(200), Avg: dec(150), Median: dec(140)}
	}

	free := ApplyDiscount(tier.Free, base())
	flipper := ApplyDiscount(tier.Flipper, base())
	pro := ApplyDiscount(tier.Pro, base())

	if !(pro.Low.GreaterThanOrEqual(*flipper.Low) && flipper.Low.GreaterThanOrEqual(*free.Low)) {
		t.Fatalf("low not monotonic: %s %s %s", free.Low, flipper.Low, pro.Low)
	}
	if !(pro.High.GreaterThanOrEqual(*flipper.High) && flipper.High.GreaterThanOrEqual(*free.High)) {
		t.Fatalf("high not monotonic: %s %s %s", free.High, flipper.High, pro.High)
	}
}

func TestApplyDiscountNilFieldsStayNil(t *testing.T) {
	adjusted := ApplyDiscount(tier.Free, EmptyStats("estimate"))
	if adjusted.Low != nil || adjusted.High != nil {
		t.Fatal("discount must not invent prices for empty stats")
	}
}
