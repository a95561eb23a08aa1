package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	upsertPriceCacheSQL = `INSERT INTO price_cache (
        search_query,
        category,
        source,
        sample_count,
        price_low,
        price_high,
        price_avg,
        price_median,
        raw_samples,
        fetched_at,
        expires_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (search_query, category, source) DO UPDATE
    SET
        sample_count = EXCLUDED.sample_count,
        price_low    = EXCLUDED.price_low,
        price_high   = EXCLUDED.price_high,
        price_avg    = EXCLUDED.price_avg,
        price_median = EXCLUDED.price_median,
        raw_samples  = EXCLUDED.raw_samples,
        fetched_at   = EXCLUDED.fetched_at,
        expires_at   = EXCLUDED.expires_at;`

	getPriceCacheSQL = `SELECT
        search_query,
        category,
        source,
        sample_count,
        price_low,
        price_high,
        price_avg,
        price_median,
        raw_samples,
        fetched_at,
        expires_at
    FROM price_cache
    WHERE search_query = $1
      AND category = $2
      AND source = $3
      AND expires_at > $4;`

	deleteExpiredPriceCacheSQL = `DELETE FROM price_cache WHERE expires_at <= $1;`
)

// PriceCacheStore defines persistence for cached price statistics.
type PriceCacheStore interface {
	GetPrice(ctx context.Context, query, category, source string, now time.Time) (PriceCacheEntry, bool, error)
	PutPrice(ctx context.Context, entry PriceCacheEntry) error
	DeleteExpiredPrices(ctx context.Context, now time.Time) (int64, error)
}

// GetPrice returns a cache hit only while the entry is fresh. Expired rows are
// treated as misses and reaped lazily by the maintenance sweep.
func (s *Store) GetPrice(ctx context.Context, query, category, source string, now time.Time) (PriceCacheEntry, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceCacheEntry{}, false, err
	}

	row := pool.QueryRow(ctx, getPriceCacheSQL, query, category, source, now)
	entry, err := scanPriceCacheEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PriceCacheEntry{}, false, nil
	}
	if err != nil {
		return PriceCacheEntry{}, false, fmt.Errorf("get price cache: %w", err)
	}
	return entry, true, nil
}

// PutPrice upserts an entry on its (search_query, category, source) key. The
// write fully replaces any existing row; last write wins under concurrency.
func (s *Store) PutPrice(ctx context.Context, entry PriceCacheEntry) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertPriceCacheSQL,
		entry.SearchQuery,
		entry.Category,
		entry.Source,
		entry.SampleCount,
		entry.Low.String(),
		entry.High.String(),
		entry.Avg.String(),
		entry.Median.String(),
		[]byte(entry.RawSamples),
		entry.FetchedAt,
		entry.ExpiresAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert price cache: %w", execErr)
	}
	return nil
}

// DeleteExpiredPrices reaps rows past their TTL and reports how many went.
func (s *Store) DeleteExpiredPrices(ctx context.Context, now time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tag, execErr := pool.Exec(ctx, deleteExpiredPriceCacheSQL, now)
	if execErr != nil {
		return 0, fmt.Errorf("delete expired price cache: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func scanPriceCacheEntry(row pgx.Row) (PriceCacheEntry, error) {
	var (
		entry                          PriceCacheEntry
		lowStr, highStr, avgStr, medStr string
	)

	if err := row.Scan(
		&entry.SearchQuery,
		&entry.Category,
		&entry.Source,
		&entry.SampleCount,
		&lowStr,
		&highStr,
		&avgStr,
		&medStr,
		&entry.RawSamples,
		&entry.FetchedAt,
		&entry.ExpiresAt,
	); err != nil {
		return PriceCacheEntry{}, err
	}

	var convErr error
	if entry.Low, convErr = decimal.NewFromString(lowStr); convErr != nil {
		return PriceCacheEntry{}, fmt.Errorf("parse price_low: %w", convErr)
	}
	if entry.High, convErr = decimal.NewFromString(highStr); convErr != nil {
		return PriceCacheEntry{}, fmt.Errorf("parse price_high: %w", convErr)
	}
	if entry.Avg, convErr = decimal.NewFromString(avgStr); convErr != nil {
		return PriceCacheEntry{}, fmt.Errorf("parse price_avg: %w", convErr)
	}
	if entry.Median, convErr = decimal.NewFromString(medStr); convErr != nil {
		return PriceCacheEntry{}, fmt.Errorf("parse price_median: %w", convErr)
	}

	return entry, nil
}
