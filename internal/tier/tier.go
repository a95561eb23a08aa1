package tier

import "fmt"

// Tier is a subscription level. It gates data-source quality, discount
// aggressiveness, and daily usage limits.
type Tier string

const (
	Free    Tier = "free"
	Flipper Tier = "flipper"
	Pro     Tier = "pro"
)

// Unlimited is the sentinel for "no cap" in limit tables.
const Unlimited = -1

// Parse converts a stored tier string into a Tier. Unknown values are an
// error rather than silently falling through to a default.
func Parse(s string) (Tier, error) {
	switch Tier(s) {
	case Free, Flipper, Pro:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Action identifies a quota-tracked operation.
type Action string

const (
	ActionPriceLookup Action = "price_lookup"
	ActionExtraction  Action = "extraction"
)

// Limits holds every per-tier cap in one place.
type Limits struct {
	LookupsPerDay     int
	ExtractionsPerDay int
	SavedDeals        int
	ActiveAlerts      int
}

// Plan describes how price lookups behave for a tier: which data source is
// queried, how many samples are requested, and the haircut applied to
// active-listing prices to approximate realized sale price.
type Plan struct {
	Source      string
	SampleLimit int
	Discount    float64
}

var limitsByTier = map[Tier]Limits{
	Free:    {LookupsPerDay: 10, ExtractionsPerDay: 5, SavedDeals: 25, ActiveAlerts: 1},
	Flipper: {LookupsPerDay: 100, ExtractionsPerDay: 50, SavedDeals: 500, ActiveAlerts: 10},
	Pro:     {LookupsPerDay: Unlimited, ExtractionsPerDay: 200, SavedDeals: Unlimited, ActiveAlerts: 50},
}

var plansByTier = map[Tier]Plan{
	Free:    {Source: "estimate", SampleLimit: 50, Discount: 0.20},
	Flipper: {Source: "ebay_active", SampleLimit: 50, Discount: 0.15},
	Pro:     {Source: "ebay_active_pro", SampleLimit: 100, Discount: 0.10},
}

// LimitsFor returns the cap table for a tier. Unknown tiers get free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := limitsByTier[t]; ok {
		return l
	}
	return limitsByTier[Free]
}

// PlanFor returns the lookup plan for a tier. Unknown tiers get the free plan.
func PlanFor(t Tier) Plan {
	if p, ok := plansByTier[t]; ok {
		return p
	}
	return plansByTier[Free]
}

// LimitFor resolves the daily cap for a quota action.
func (l Limits) LimitFor(action Action) int {
	switch action {
	case ActionExtraction:
		return l.ExtractionsPerDay
	default:
		return l.LookupsPerDay
	}
}
