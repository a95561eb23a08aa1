package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const usageWindow = 24 * time.Hour

const (
	ensureUsageCounterSQL = `INSERT INTO usage_counters (user_id, action, count, window_start)
    VALUES ($1, $2, 0, $3)
    ON CONFLICT (user_id, action) DO NOTHING;`

	lockUsageCounterSQL = `SELECT count, window_start
    FROM usage_counters
    WHERE user_id = $1 AND action = $2
    FOR UPDATE;`

	updateUsageCounterSQL = `UPDATE usage_counters
    SET count = $3, window_start = $4
    WHERE user_id = $1 AND action = $2;`

	getUsageCounterSQL = `SELECT count, window_start
    FROM usage_counters
    WHERE user_id = $1 AND action = $2;`
)

// UsageStore defines persistence for per-user action counters.
type UsageStore interface {
	IncrementUsage(ctx context.Context, userID, action string, limit int, now time.Time) (UsageResult, error)
	GetUsage(ctx context.Context, userID, action string) (UsageCounter, bool, error)
}

// IncrementUsage performs an atomic check-and-increment for (userID, action).
//
// The counter row is created lazily, then locked for the duration of the
// transaction so concurrent increments for the same pair serialise. A window
// older than 24h is reset before the limit is evaluated, so a request after
// the lapse runs against a fresh quota. A negative limit means unlimited.
// When denied, the count is left unchanged.
func (s *Store) IncrementUsage(ctx context.Context, userID, action string, limit int, now time.Time) (UsageResult, error) {
	pool, err := s.getPool()
	if err != nil {
		return UsageResult{}, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return UsageResult{}, fmt.Errorf("begin usage tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, ensureUsageCounterSQL, userID, action, now); err != nil {
		return UsageResult{}, fmt.Errorf("ensure usage counter: %w", err)
	}

	var count int
	var windowStart time.Time
	if err := tx.QueryRow(ctx, lockUsageCounterSQL, userID, action).Scan(&count, &windowStart); err != nil {
		return UsageResult{}, fmt.Errorf("lock usage counter: %w", err)
	}

	if now.Sub(windowStart) >= usageWindow {
		count = 0
		windowStart = now
	}

	allowed := limit < 0 || count < limit
	if allowed {
		count++
	}

	if _, err := tx.Exec(ctx, updateUsageCounterSQL, userID, action, count, windowStart); err != nil {
		return UsageResult{}, fmt.Errorf("update usage counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return UsageResult{}, fmt.Errorf("commit usage tx: %w", err)
	}

	return UsageResult{Allowed: allowed, Used: count, WindowStart: windowStart}, nil
}

// GetUsage reads a counter without mutating it. The second return is false
// when the pair has never been counted.
func (s *Store) GetUsage(ctx context.Context, userID, action string) (UsageCounter, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return UsageCounter{}, false, err
	}

	counter := UsageCounter{UserID: userID, Action: action}
	err = pool.QueryRow(ctx, getUsageCounterSQL, userID, action).Scan(&counter.Count, &counter.WindowStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return UsageCounter{}, false, nil
	}
	if err != nil {
		return UsageCounter{}, false, fmt.Errorf("get usage counter: %w", err)
	}
	return counter, true, nil
}
