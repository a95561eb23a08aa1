package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	upsertProfitAlertSQL = `INSERT INTO profit_alerts (
        user_id, search_query, estimated_profit_low, threshold_profit,
        channels, bucket_date, created_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (user_id, search_query, bucket_date) DO UPDATE
    SET estimated_profit_low = EXCLUDED.estimated_profit_low,
        threshold_profit     = EXCLUDED.threshold_profit,
        channels             = EXCLUDED.channels
    RETURNING id, user_id, search_query, estimated_profit_low, threshold_profit,
        channels, bucket_date, created_at;`

	listRecentProfitAlertsSQL = `SELECT
        id, user_id, search_query, estimated_profit_low, threshold_profit,
        channels, bucket_date, created_at
    FROM profit_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteProfitAlertsBeforeSQL = `DELETE FROM profit_alerts WHERE created_at < $1;`
)

// ProfitAlertStore audits dispatched high-margin notifications.
type ProfitAlertStore interface {
	InsertProfitAlert(ctx context.Context, alert ProfitAlert) (ProfitAlert, error)
	ListRecentProfitAlerts(ctx context.Context, limit int) ([]ProfitAlert, error)
	DeleteProfitAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// InsertProfitAlert persists an alert emission, deduplicated per
// (user, query, day): a repeat within the same day updates in place.
func (s *Store) InsertProfitAlert(ctx context.Context, alert ProfitAlert) (ProfitAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return ProfitAlert{}, err
	}

	row := pool.QueryRow(ctx, upsertProfitAlertSQL,
		alert.UserID,
		alert.SearchQuery,
		alert.EstimatedProfitLow.String(),
		alert.ThresholdProfit.String(),
		alert.Channels,
		alert.BucketDate,
		alert.CreatedAt,
	)

	rec, err := scanProfitAlert(row)
	if err != nil {
		return ProfitAlert{}, fmt.Errorf("insert profit alert: %w", err)
	}
	return rec, nil
}

// ListRecentProfitAlerts lists the newest dispatched alerts.
func (s *Store) ListRecentProfitAlerts(ctx context.Context, limit int) ([]ProfitAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentProfitAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list profit alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]ProfitAlert, 0, limit)
	for rows.Next() {
		rec, scanErr := scanProfitAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteProfitAlertsBefore drops aged alert audit rows.
func (s *Store) DeleteProfitAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tag, execErr := pool.Exec(ctx, deleteProfitAlertsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete profit alerts: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfitAlert(row rowScanner) (ProfitAlert, error) {
	var rec ProfitAlert
	var profitStr, thresholdStr string

	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.SearchQuery,
		&profitStr,
		&thresholdStr,
		&rec.Channels,
		&rec.BucketDate,
		&rec.CreatedAt,
	); err != nil {
		return ProfitAlert{}, err
	}

	var convErr error
	if rec.EstimatedProfitLow, convErr = decimal.NewFromString(profitStr); convErr != nil {
		return ProfitAlert{}, fmt.Errorf("parse estimated_profit_low: %w", convErr)
	}
	if rec.ThresholdProfit, convErr = decimal.NewFromString(thresholdStr); convErr != nil {
		return ProfitAlert{}, fmt.Errorf("parse threshold_profit: %w", convErr)
	}

	return rec, nil
}
