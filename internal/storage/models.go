package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Account mirrors the billing collaborator's view of a user: identity,
// subscription tier, and the saved-deal counter this core maintains.
type Account struct {
	ID              string
	Tier            string
	DealsSavedCount int
	CreatedAt       time.Time
}

// UsageCounter is one live (user, action) daily counter.
type UsageCounter struct {
	UserID      string
	Action      string
	Count       int
	WindowStart time.Time
}

// UsageResult is the outcome of an atomic check-and-increment.
type UsageResult struct {
	Allowed     bool
	Used        int
	WindowStart time.Time
}

// PriceCacheEntry is one cached price computation, unique per
// (search_query, category, source). Category is stored as '' when absent so
// the unique key holds.
type PriceCacheEntry struct {
	SearchQuery string
	Category    string
	Source      string
	SampleCount int
	Low         decimal.Decimal
	High        decimal.Decimal
	Avg         decimal.Decimal
	Median      decimal.Decimal
	RawSamples  json.RawMessage
	FetchedAt   time.Time
	ExpiresAt   time.Time
}

// Deal is a user-saved listing. ExternalListingID, when present, identifies
// at most one deal per user.
type Deal struct {
	ID                  int64
	UserID              string
	ExternalListingID   *string
	Title               string
	SourceURL           string
	AskingPrice         *decimal.Decimal
	EstimateLow         *decimal.Decimal
	EstimateHigh        *decimal.Decimal
	EstimateAvg         *decimal.Decimal
	EstimatedProfitLow  *decimal.Decimal
	EstimatedProfitHigh *decimal.Decimal
	PurchasePrice       *decimal.Decimal
	SoldPrice           *decimal.Decimal
	ActualProfit        *decimal.Decimal
	Notes               string
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Deal statuses. Sold is terminal for profit purposes.
const (
	DealStatusWatching  = "watching"
	DealStatusContacted = "contacted"
	DealStatusPurchased = "purchased"
	DealStatusSold      = "sold"
	DealStatusPassed    = "passed"
	DealStatusExpired   = "expired"
)

// PriceHistoryPoint is one recorded fresh lookup, kept for trend charts.
type PriceHistoryPoint struct {
	SearchQuery string
	Source      string
	SampleCount int
	Low         decimal.Decimal
	High        decimal.Decimal
	Avg         decimal.Decimal
	Median      decimal.Decimal
	RecordedAt  time.Time
}

// ProfitAlert audits a dispatched high-margin notification, deduplicated per
// (user, query, day).
type ProfitAlert struct {
	ID                 int64
	UserID             string
	SearchQuery        string
	EstimatedProfitLow decimal.Decimal
	ThresholdProfit    decimal.Decimal
	Channels           []string
	BucketDate         time.Time
	CreatedAt          time.Time
}
