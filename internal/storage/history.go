package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	insertPriceHistorySQL = `INSERT INTO price_history (
        search_query, source, sample_count,
        price_low, price_high, price_avg, price_median,
        recorded_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	listPriceHistorySQL = `SELECT
        search_query, source, sample_count,
        price_low, price_high, price_avg, price_median,
        recorded_at
    FROM price_history
    WHERE search_query = $1
      AND recorded_at >= $2
    ORDER BY recorded_at;`

	deletePriceHistoryBeforeSQL = `DELETE FROM price_history WHERE recorded_at < $1;`
)

// PriceHistoryStore defines persistence for per-query price trends.
type PriceHistoryStore interface {
	InsertPriceHistory(ctx context.Context, point PriceHistoryPoint) error
	ListPriceHistory(ctx context.Context, query string, since time.Time) ([]PriceHistoryPoint, error)
	DeletePriceHistoryBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// InsertPriceHistory records one fresh lookup result.
func (s *Store) InsertPriceHistory(ctx context.Context, point PriceHistoryPoint) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertPriceHistorySQL,
		point.SearchQuery,
		point.Source,
		point.SampleCount,
		point.Low.String(),
		point.High.String(),
		point.Avg.String(),
		point.Median.String(),
		point.RecordedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert price history: %w", execErr)
	}
	return nil
}

// ListPriceHistory returns a query's recorded points since a cutoff, oldest first.
func (s *Store) ListPriceHistory(ctx context.Context, query string, since time.Time) ([]PriceHistoryPoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPriceHistorySQL, query, since)
	if queryErr != nil {
		return nil, fmt.Errorf("list price history: %w", queryErr)
	}
	defer rows.Close()

	points := make([]PriceHistoryPoint, 0)
	for rows.Next() {
		var (
			point                           PriceHistoryPoint
			lowStr, highStr, avgStr, medStr string
		)
		if err := rows.Scan(
			&point.SearchQuery,
			&point.Source,
			&point.SampleCount,
			&lowStr,
			&highStr,
			&avgStr,
			&medStr,
			&point.RecordedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		if point.Low, convErr = decimal.NewFromString(lowStr); convErr != nil {
			return nil, fmt.Errorf("parse price_low: %w", convErr)
		}
		if point.High, convErr = decimal.NewFromString(highStr); convErr != nil {
			return nil, fmt.Errorf("parse price_high: %w", convErr)
		}
		if point.Avg, convErr = decimal.NewFromString(avgStr); convErr != nil {
			return nil, fmt.Errorf("parse price_avg: %w", convErr)
		}
		if point.Median, convErr = decimal.NewFromString(medStr); convErr != nil {
			return nil, fmt.Errorf("parse price_median: %w", convErr)
		}

		points = append(points, point)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// DeletePriceHistoryBefore drops aged history rows.
func (s *Store) DeletePriceHistoryBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tag, execErr := pool.Exec(ctx, deletePriceHistoryBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete price history: %w", execErr)
	}
	return tag.RowsAffected(), nil
}
