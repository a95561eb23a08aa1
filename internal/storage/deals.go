package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	lockAccountSQL = `SELECT deals_saved_count FROM accounts WHERE id = $1 FOR UPDATE;`

	dealExistsSQL = `SELECT EXISTS (
        SELECT 1 FROM deals WHERE user_id = $1 AND external_listing_id = $2
    );`

	dealColumns = `id, user_id, external_listing_id, title, source_url, asking_price,
        estimate_low, estimate_high, estimate_avg,
        estimated_profit_low, estimated_profit_high,
        purchase_price, sold_price, actual_profit,
        notes, status, created_at, updated_at`

	upsertDealSQL = `INSERT INTO deals (
        user_id, external_listing_id, title, source_url, asking_price,
        estimate_low, estimate_high, estimate_avg,
        estimated_profit_low, estimated_profit_high,
        notes, status, created_at, updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13
    )
    ON CONFLICT (user_id, external_listing_id) WHERE external_listing_id IS NOT NULL
    DO UPDATE SET
        title                 = EXCLUDED.title,
        source_url            = EXCLUDED.source_url,
        asking_price          = EXCLUDED.asking_price,
        estimate_low          = EXCLUDED.estimate_low,
        estimate_high         = EXCLUDED.estimate_high,
        estimate_avg          = EXCLUDED.estimate_avg,
        estimated_profit_low  = EXCLUDED.estimated_profit_low,
        estimated_profit_high = EXCLUDED.estimated_profit_high,
        notes                 = EXCLUDED.notes,
        updated_at            = EXCLUDED.updated_at
    RETURNING ` + dealColumns + `, (xmax = 0) AS created;`

	insertDealSQL = `INSERT INTO deals (
        user_id, external_listing_id, title, source_url, asking_price,
        estimate_low, estimate_high, estimate_avg,
        estimated_profit_low, estimated_profit_high,
        notes, status, created_at, updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13
    )
    RETURNING ` + dealColumns + `;`

	incrementDealsSavedSQL = `UPDATE accounts
    SET deals_saved_count = deals_saved_count + 1
    WHERE id = $1;`

	getDealSQL = `SELECT ` + dealColumns + `
    FROM deals
    WHERE id = $1 AND user_id = $2;`

	listRecentDealsSQL = `SELECT ` + dealColumns + `
    FROM deals
    WHERE user_id = $1
    ORDER BY created_at DESC
    LIMIT $2;`

	updateDealSaleSQL = `UPDATE deals
    SET status = $3,
        purchase_price = $4,
        sold_price = $5,
        actual_profit = $6,
        updated_at = $7
    WHERE id = $1 AND user_id = $2
    RETURNING ` + dealColumns + `;`
)

// DealLimitError reports a saved-deal cap rejection.
type DealLimitError struct {
	Limit int
	Saved int
}

func (e *DealLimitError) Error() string {
	return fmt.Sprintf("saved-deal limit reached (%d of %d)", e.Saved, e.Limit)
}

// DealStore defines persistence for saved deals.
type DealStore interface {
	IngestDeal(ctx context.Context, deal Deal, savedLimit int, now time.Time) (Deal, bool, error)
	GetDeal(ctx context.Context, userID string, dealID int64) (Deal, error)
	ListRecentDeals(ctx context.Context, userID string, limit int) ([]Deal, error)
	UpdateDealSale(ctx context.Context, userID string, dealID int64, purchase, sold, actualProfit decimal.Decimal, now time.Time) (Deal, error)
}

// IngestDeal saves a deal exactly once per (user, external listing id).
//
// The whole sequence runs in one transaction with the caller's account row
// locked, so concurrent ingestion of the same listing serialises. The write
// itself is a single INSERT ... ON CONFLICT DO UPDATE keyed on the partial
// unique index, which can never yield two live rows for the pair. The
// saved-deal cap applies only to the insert path, and the account counter
// moves by exactly one per created deal. A negative savedLimit is unlimited.
func (s *Store) IngestDeal(ctx context.Context, deal Deal, savedLimit int, now time.Time) (Deal, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return Deal{}, false, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return Deal{}, false, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var savedCount int
	err = tx.QueryRow(ctx, lockAccountSQL, deal.UserID).Scan(&savedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, false, ErrAccountNotFound
	}
	if err != nil {
		return Deal{}, false, fmt.Errorf("lock account: %w", err)
	}

	willInsert := true
	if deal.ExternalListingID != nil {
		var exists bool
		if err := tx.QueryRow(ctx, dealExistsSQL, deal.UserID, *deal.ExternalListingID).Scan(&exists); err != nil {
			return Deal{}, false, fmt.Errorf("check existing deal: %w", err)
		}
		willInsert = !exists
	}

	if willInsert && savedLimit >= 0 && savedCount >= savedLimit {
		return Deal{}, false, &DealLimitError{Limit: savedLimit, Saved: savedCount}
	}

	status := deal.Status
	if status == "" {
		status = DealStatusWatching
	}

	args := []any{
		deal.UserID,
		deal.ExternalListingID,
		deal.Title,
		deal.SourceURL,
		decimalArg(deal.AskingPrice),
		decimalArg(deal.EstimateLow),
		decimalArg(deal.EstimateHigh),
		decimalArg(deal.EstimateAvg),
		decimalArg(deal.EstimatedProfitLow),
		decimalArg(deal.EstimatedProfitHigh),
		deal.Notes,
		status,
		now,
	}

	var saved Deal
	var created bool
	if deal.ExternalListingID != nil {
		row := tx.QueryRow(ctx, upsertDealSQL, args...)
		saved, err = scanDeal(row, &created)
	} else {
		row := tx.QueryRow(ctx, insertDealSQL, args...)
		saved, err = scanDeal(row, nil)
		created = true
	}
	if err != nil {
		return Deal{}, false, fmt.Errorf("write deal: %w", err)
	}

	if created {
		if _, err := tx.Exec(ctx, incrementDealsSavedSQL, deal.UserID); err != nil {
			return Deal{}, false, fmt.Errorf("increment saved-deal counter: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Deal{}, false, fmt.Errorf("commit ingest tx: %w", err)
	}
	return saved, created, nil
}

// GetDeal fetches one of the user's deals.
func (s *Store) GetDeal(ctx context.Context, userID string, dealID int64) (Deal, error) {
	pool, err := s.getPool()
	if err != nil {
		return Deal{}, err
	}

	row := pool.QueryRow(ctx, getDealSQL, dealID, userID)
	deal, err := scanDeal(row, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrDealNotFound
	}
	if err != nil {
		return Deal{}, fmt.Errorf("get deal: %w", err)
	}
	return deal, nil
}

// ListRecentDeals lists the user's newest deals.
func (s *Store) ListRecentDeals(ctx context.Context, userID string, limit int) ([]Deal, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDealsSQL, userID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent deals: %w", queryErr)
	}
	defer rows.Close()

	deals := make([]Deal, 0, limit)
	for rows.Next() {
		deal, scanErr := scanDeal(rows, nil)
		if scanErr != nil {
			return nil, scanErr
		}
		deals = append(deals, deal)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return deals, nil
}

// UpdateDealSale marks a deal sold with its realized prices and profit.
func (s *Store) UpdateDealSale(ctx context.Context, userID string, dealID int64, purchase, sold, actualProfit decimal.Decimal, now time.Time) (Deal, error) {
	pool, err := s.getPool()
	if err != nil {
		return Deal{}, err
	}

	row := pool.QueryRow(ctx, updateDealSaleSQL,
		dealID,
		userID,
		DealStatusSold,
		purchase.String(),
		sold.String(),
		actualProfit.String(),
		now,
	)
	deal, err := scanDeal(row, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrDealNotFound
	}
	if err != nil {
		return Deal{}, fmt.Errorf("update deal sale: %w", err)
	}
	return deal, nil
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDeal(row pgx.Row, created *bool) (Deal, error) {
	var (
		deal       Deal
		externalID sql.NullString
		asking     sql.NullString
		estLow     sql.NullString
		estHigh    sql.NullString
		estAvg     sql.NullString
		profitLow  sql.NullString
		profitHigh sql.NullString
		purchase   sql.NullString
		soldPrice  sql.NullString
		actual     sql.NullString
	)

	dest := []any{
		&deal.ID,
		&deal.UserID,
		&externalID,
		&deal.Title,
		&deal.SourceURL,
		&asking,
		&estLow,
		&estHigh,
		&estAvg,
		&profitLow,
		&profitHigh,
		&purchase,
		&soldPrice,
		&actual,
		&deal.Notes,
		&deal.Status,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	}
	if created != nil {
		dest = append(dest, created)
	}

	if err := row.Scan(dest...); err != nil {
		return Deal{}, err
	}

	if externalID.Valid {
		v := externalID.String
		deal.ExternalListingID = &v
	}

	for _, field := range []struct {
		src sql.NullString
		dst **decimal.Decimal
	}{
		{asking, &deal.AskingPrice},
		{estLow, &deal.EstimateLow},
		{estHigh, &deal.EstimateHigh},
		{estAvg, &deal.EstimateAvg},
		{profitLow, &deal.EstimatedProfitLow},
		{profitHigh, &deal.EstimatedProfitHigh},
		{purchase, &deal.PurchasePrice},
		{soldPrice, &deal.SoldPrice},
		{actual, &deal.ActualProfit},
	} {
		if !field.src.Valid {
			continue
		}
		d, err := decimal.NewFromString(field.src.String)
		if err != nil {
			return Deal{}, fmt.Errorf("parse deal price: %w", err)
		}
		*field.dst = &d
	}

	return deal, nil
}
