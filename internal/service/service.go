package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"flipcheck/internal/alerting"
	"flipcheck/internal/config"
	"flipcheck/internal/ebay"
	"flipcheck/internal/pricing"
	"flipcheck/internal/quota"
	"flipcheck/internal/storage"
	"flipcheck/internal/tier"
)

// ErrQueryTooShort rejects lookups whose normalized query is under two characters.
var ErrQueryTooShort = errors.New("query must be at least 2 characters")

// ErrPurchasePriceUnknown rejects a sale record when no purchase price can be
// resolved from the request or the stored deal.
var ErrPurchasePriceUnknown = errors.New("purchase price unknown; cannot compute actual profit")

// QuotaError reports a daily limit rejection. It carries resets_at so the
// caller can tell the user when to retry.
type QuotaError struct {
	Action   tier.Action
	Used     int
	Limit    int
	ResetsAt time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("daily %s limit reached (%d of %d), resets at %s",
		e.Action, e.Used, e.Limit, e.ResetsAt.UTC().Format(time.RFC3339))
}

// DealLimitError reports a saved-deal cap rejection with the tier that hit it.
type DealLimitError struct {
	Limit int
	Saved int
	Tier  tier.Tier
}

func (e *DealLimitError) Error() string {
	return fmt.Sprintf("saved-deal limit reached for %s tier (%d of %d)", e.Tier, e.Saved, e.Limit)
}

// PriceResolver resolves fresh price statistics for a query.
type PriceResolver interface {
	Resolve(ctx context.Context, query, category string, t tier.Tier) pricing.Stats
}

// Stores bundles the persistence surface the service consumes.
type Stores interface {
	storage.AccountStore
	storage.PriceCacheStore
	storage.DealStore
	storage.PriceHistoryStore
	storage.ProfitAlertStore
}

// Service orchestrates quota gating, tiered price resolution, caching, profit
// computation, deal ingestion, and profit alerting.
type Service struct {
	resolver PriceResolver
	tracker  *quota.Tracker
	stores   Stores
	notifier alerting.Notifier
	profit   *pricing.ProfitCalculator
	logger   zerolog.Logger

	cacheTTL         time.Duration
	alertsOn         bool
	profitThreshold  decimal.Decimal
	channels         []string
	locker           storage.AdvisoryLocker
	lockKey          int64
	historyRetention time.Duration
	alertRetention   time.Duration

	now func() time.Time
}

// New constructs the service.
func New(cfg *config.Config, resolver PriceResolver, tracker *quota.Tracker, stores Stores, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	cacheTTL := cfg.Pricing.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}

	var locker storage.AdvisoryLocker
	if l, ok := stores.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		resolver:         resolver,
		tracker:          tracker,
		stores:           stores,
		notifier:         notifier,
		profit:           pricing.NewProfitCalculator(cfg.Pricing.EstimateFeeMultiplier, cfg.Pricing.ActualNetMultiplier),
		logger:           logger.With().Str("component", "service").Logger(),
		cacheTTL:         cacheTTL,
		alertsOn:         cfg.Alerting.Enabled,
		profitThreshold:  decimal.NewFromFloat(cfg.Alerting.ProfitThreshold),
		channels:         cfg.Alerting.Channels,
		locker:           locker,
		lockKey:          cfg.Maintenance.AdvisoryLockKey,
		historyRetention: cfg.Maintenance.HistoryRetention,
		alertRetention:   cfg.Maintenance.AlertRetention,
		now:              time.Now,
	}
}

// LookupRequest is one price lookup call.
type LookupRequest struct {
	UserID      string
	Query       string
	Category    string
	AskingPrice *decimal.Decimal
}

// PriceSummary is the aggregate price block of a lookup response.
type PriceSummary struct {
	Low         *decimal.Decimal
	High        *decimal.Decimal
	Avg         *decimal.Decimal
	Median      *decimal.Decimal
	SampleCount int
}

// LookupResult is the combined outcome of a price lookup.
type LookupResult struct {
	Source          string
	Cached          bool
	Query           string
	Prices          PriceSummary
	Samples         []pricing.Listing
	EbaySearchURL   string
	EstimatedProfit *pricing.ProfitEstimate
	Usage           quota.Result
}

// maxResponseSamples caps the raw samples returned to callers; the cache
// keeps up to ten, responses show at most five.
const maxResponseSamples = 5

// LookupPrice runs the full lookup pipeline: validation, quota, cache,
// resolve, discount, cache write, history, profit estimate, alerting.
func (s *Service) LookupPrice(ctx context.Context, req LookupRequest) (LookupResult, error) {
	query := pricing.NormalizeQuery(req.Query)
	if len(query) < pricing.MinQueryLength {
		return LookupResult{}, ErrQueryTooShort
	}

	userTier, err := s.userTier(ctx, req.UserID)
	if err != nil {
		return LookupResult{}, err
	}

	usage, err := s.tracker.Increment(ctx, req.UserID, userTier, tier.ActionPriceLookup)
	if err != nil {
		return LookupResult{}, fmt.Errorf("check usage: %w", err)
	}
	if !usage.Allowed {
		return LookupResult{}, &QuotaError{
			Action:   tier.ActionPriceLookup,
			Used:     usage.Used,
			Limit:    usage.Limit,
			ResetsAt: usage.ResetsAt,
		}
	}

	plan := tier.PlanFor(userTier)
	now := s.now().UTC()

	if entry, hit := s.cacheGet(ctx, query, req.Category, plan.Source, now); hit {
		result := s.resultFromCache(query, entry, usage)
		result.EstimatedProfit = s.estimateProfit(req.AskingPrice, statsFromCache(entry))
		return result, nil
	}

	stats := s.resolver.Resolve(ctx, query, req.Category, userTier)
	adjusted := pricing.ApplyDiscount(userTier, stats)

	if adjusted.SampleCount > 0 {
		s.cachePut(ctx, query, req.Category, adjusted, now)
		s.recordHistory(ctx, query, adjusted, now)
	}

	result := LookupResult{
		Source:        adjusted.Source,
		Cached:        false,
		Query:         query,
		Prices:        summarize(adjusted),
		Samples:       capSamples(adjusted.Samples),
		EbaySearchURL: ebay.SearchURL(query, false),
		Usage:         usage,
	}
	result.EstimatedProfit = s.estimateProfit(req.AskingPrice, adjusted)

	s.maybeAlert(ctx, req.UserID, query, req.AskingPrice, adjusted, result.EstimatedProfit, now)

	return result, nil
}

// QuotaStatus is the non-consuming usage report for one action.
type QuotaStatus struct {
	Action    tier.Action
	Used      int
	Limit     int
	Remaining int
	ResetsAt  time.Time
}

// CheckQuota reports current usage without consuming quota.
func (s *Service) CheckQuota(ctx context.Context, userID string, action tier.Action) (QuotaStatus, error) {
	userTier, err := s.userTier(ctx, userID)
	if err != nil {
		return QuotaStatus{}, err
	}

	res, err := s.tracker.Check(ctx, userID, userTier, action)
	if err != nil {
		return QuotaStatus{}, err
	}

	return QuotaStatus{
		Action:    action,
		Used:      res.Used,
		Limit:     res.Limit,
		Remaining: res.Remaining(),
		ResetsAt:  res.ResetsAt,
	}, nil
}

// IngestRequest is one saved-deal submission.
type IngestRequest struct {
	UserID            string
	ExternalListingID *string
	Title             string
	SourceURL         string
	AskingPrice       *decimal.Decimal
	EstimateLow       *decimal.Decimal
	EstimateHigh      *decimal.Decimal
	EstimateAvg       *decimal.Decimal
	Notes             string
}

// IngestDeal saves a deal idempotently. A repeat submission with the same
// external listing id updates the existing row and reports created=false;
// only inserts consume the tier's saved-deal quota.
func (s *Service) IngestDeal(ctx context.Context, req IngestRequest) (storage.Deal, bool, error) {
	account, err := s.stores.GetAccount(ctx, req.UserID)
	if err != nil {
		return storage.Deal{}, false, err
	}
	userTier := parseTierOrFree(account.Tier, s.logger)

	deal := storage.Deal{
		UserID:            req.UserID,
		ExternalListingID: req.ExternalListingID,
		Title:             req.Title,
		SourceURL:         req.SourceURL,
		AskingPrice:       req.AskingPrice,
		EstimateLow:       req.EstimateLow,
		EstimateHigh:      req.EstimateHigh,
		EstimateAvg:       req.EstimateAvg,
		Notes:             req.Notes,
		Status:            storage.DealStatusWatching,
	}
	if deal.Title == "" {
		deal.Title = "Untitled Deal"
	}

	if req.AskingPrice != nil && req.EstimateLow != nil {
		est := s.profit.Estimate(*req.AskingPrice, pricing.Stats{Low: req.EstimateLow, High: req.EstimateHigh})
		if est != nil {
			deal.EstimatedProfitLow = &est.Low
			deal.EstimatedProfitHigh = &est.High
		}
	}

	savedLimit := tier.LimitsFor(userTier).SavedDeals
	saved, created, err := s.stores.IngestDeal(ctx, deal, savedLimit, s.now().UTC())
	var limitErr *storage.DealLimitError
	if errors.As(err, &limitErr) {
		return storage.Deal{}, false, &DealLimitError{Limit: limitErr.Limit, Saved: limitErr.Saved, Tier: userTier}
	}
	if err != nil {
		return storage.Deal{}, false, err
	}
	return saved, created, nil
}

// RecordSale marks a deal sold and computes actual profit from the realized
// prices. A zero purchase price falls back to the deal's stored purchase
// price, then its asking price.
func (s *Service) RecordSale(ctx context.Context, userID string, dealID int64, purchasePrice, soldPrice decimal.Decimal) (storage.Deal, error) {
	if !soldPrice.IsPositive() {
		return storage.Deal{}, fmt.Errorf("sold price must be positive")
	}

	deal, err := s.stores.GetDeal(ctx, userID, dealID)
	if err != nil {
		return storage.Deal{}, err
	}

	purchase := purchasePrice
	if !purchase.IsPositive() {
		switch {
		case deal.PurchasePrice != nil && deal.PurchasePrice.IsPositive():
			purchase = *deal.PurchasePrice
		case deal.AskingPrice != nil && deal.AskingPrice.IsPositive():
			purchase = *deal.AskingPrice
		default:
			return storage.Deal{}, ErrPurchasePriceUnknown
		}
	}

	actual := s.profit.Actual(purchase, soldPrice)
	return s.stores.UpdateDealSale(ctx, userID, dealID, purchase, soldPrice, actual, s.now().UTC())
}

// Sweep reaps expired cache entries and aged history/alert rows. Guarded by
// an advisory lock so only one instance sweeps at a time.
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	if s.locker != nil && s.lockKey != 0 {
		unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
		if err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !acquired {
			s.logger.Debug().Msg("skip sweep because advisory lock held elsewhere")
			return nil
		}
		defer unlock()
	}

	expired, err := s.stores.DeleteExpiredPrices(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep price cache: %w", err)
	}

	var history, alerts int64
	if s.historyRetention > 0 {
		if history, err = s.stores.DeletePriceHistoryBefore(ctx, now.Add(-s.historyRetention)); err != nil {
			return fmt.Errorf("sweep price history: %w", err)
		}
	}
	if s.alertRetention > 0 {
		if alerts, err = s.stores.DeleteProfitAlertsBefore(ctx, now.Add(-s.alertRetention)); err != nil {
			return fmt.Errorf("sweep profit alerts: %w", err)
		}
	}

	s.logger.Info().
		Int64("expired_cache", expired).
		Int64("history", history).
		Int64("alerts", alerts).
		Msg("maintenance sweep complete")
	return nil
}

func (s *Service) userTier(ctx context.Context, userID string) (tier.Tier, error) {
	account, err := s.stores.GetAccount(ctx, userID)
	if err != nil {
		return "", err
	}
	return parseTierOrFree(account.Tier, s.logger), nil
}

func parseTierOrFree(raw string, logger zerolog.Logger) tier.Tier {
	t, err := tier.Parse(raw)
	if err != nil {
		logger.Warn().Str("tier", raw).Msg("unknown tier on account; treating as free")
		return tier.Free
	}
	return t
}

func (s *Service) cacheGet(ctx context.Context, query, category, source string, now time.Time) (storage.PriceCacheEntry, bool) {
	entry, hit, err := s.stores.GetPrice(ctx, query, category, source, now)
	if err != nil {
		// A broken cache read must not fail the lookup; fall through to the provider.
		s.logger.Warn().Err(err).Str("query", query).Msg("price cache read failed")
		return storage.PriceCacheEntry{}, false
	}
	return entry, hit
}

func (s *Service) cachePut(ctx context.Context, query, category string, stats pricing.Stats, now time.Time) {
	raw, err := json.Marshal(stats.Samples)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("marshal cache samples failed")
		raw = []byte("[]")
	}

	entry := storage.PriceCacheEntry{
		SearchQuery: query,
		Category:    category,
		Source:      stats.Source,
		SampleCount: stats.SampleCount,
		Low:         *stats.Low,
		High:        *stats.High,
		Avg:         *stats.Avg,
		Median:      *stats.Median,
		RawSamples:  raw,
		FetchedAt:   now,
		ExpiresAt:   now.Add(s.cacheTTL),
	}

	if err := s.stores.PutPrice(ctx, entry); err != nil {
		// The resolver already has a valid result; a failed write is logged and swallowed.
		s.logger.Error().Err(err).Str("query", query).Msg("price cache write failed")
	}
}

func (s *Service) recordHistory(ctx context.Context, query string, stats pricing.Stats, now time.Time) {
	point := storage.PriceHistoryPoint{
		SearchQuery: query,
		Source:      stats.Source,
		SampleCount: stats.SampleCount,
		Low:         *stats.Low,
		High:        *stats.High,
		Avg:         *stats.Avg,
		Median:      *stats.Median,
		RecordedAt:  now,
	}
	if err := s.stores.InsertPriceHistory(ctx, point); err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("price history write failed")
	}
}

func (s *Service) estimateProfit(askingPrice *decimal.Decimal, stats pricing.Stats) *pricing.ProfitEstimate {
	if askingPrice == nil {
		return nil
	}
	return s.profit.Estimate(*askingPrice, stats)
}

func (s *Service) maybeAlert(ctx context.Context, userID, query string, askingPrice *decimal.Decimal, stats pricing.Stats, est *pricing.ProfitEstimate, now time.Time) {
	if !s.alertsOn || s.notifier == nil || est == nil || askingPrice == nil {
		return
	}
	if est.Low.LessThan(s.profitThreshold) {
		return
	}

	record := storage.ProfitAlert{
		UserID:             userID,
		SearchQuery:        query,
		EstimatedProfitLow: est.Low,
		ThresholdProfit:    s.profitThreshold,
		Channels:           s.channels,
		BucketDate:         now.Truncate(24 * time.Hour),
		CreatedAt:          now,
	}
	if _, err := s.stores.InsertProfitAlert(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("failed to persist profit alert")
	}

	note := alerting.Notification{
		Query:           query,
		Source:          stats.Source,
		AskingPrice:     *askingPrice,
		EstProfitLow:    est.Low,
		EstProfitHigh:   est.High,
		ThresholdProfit: s.profitThreshold,
		SearchURL:       ebay.SearchURL(query, false),
		Channels:        s.channels,
		FoundAt:         now,
	}
	if stats.Low != nil {
		note.AdjustedLow = *stats.Low
	}
	if stats.High != nil {
		note.AdjustedHigh = *stats.High
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("failed to dispatch profit alert")
	}
}

func (s *Service) resultFromCache(query string, entry storage.PriceCacheEntry, usage quota.Result) LookupResult {
	var samples []pricing.Listing
	if len(entry.RawSamples) > 0 {
		if err := json.Unmarshal(entry.RawSamples, &samples); err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("unmarshal cached samples failed")
			samples = nil
		}
	}

	stats := statsFromCache(entry)
	return LookupResult{
		Source:        entry.Source,
		Cached:        true,
		Query:         query,
		Prices:        summarize(stats),
		Samples:       capSamples(samples),
		EbaySearchURL: ebay.SearchURL(query, false),
		Usage:         usage,
	}
}

func statsFromCache(entry storage.PriceCacheEntry) pricing.Stats {
	low, high, avg, median := entry.Low, entry.High, entry.Avg, entry.Median
	return pricing.Stats{
		Source:      entry.Source,
		SampleCount: entry.SampleCount,
		Low:         &low,
		High:        &high,
		Avg:         &avg,
		Median:      &median,
		IsEstimate:  true,
	}
}

func summarize(stats pricing.Stats) PriceSummary {
	return PriceSummary{
		Low:         stats.Low,
		High:        stats.High,
		Avg:         stats.Avg,
		Median:      stats.Median,
		SampleCount: stats.SampleCount,
	}
}

func capSamples(samples []pricing.Listing) []pricing.Listing {
	if len(samples) > maxResponseSamples {
		return samples[:maxResponseSamples]
	}
	return samples
}
