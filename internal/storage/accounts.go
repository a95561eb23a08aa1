package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const getAccountSQL = `SELECT id, tier, deals_saved_count, created_at
    FROM accounts
    WHERE id = $1;`

// AccountStore exposes the billing collaborator's account view.
type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (Account, error)
}

// GetAccount fetches a user's account row.
func (s *Store) GetAccount(ctx context.Context, userID string) (Account, error) {
	pool, err := s.getPool()
	if err != nil {
		return Account{}, err
	}

	var account Account
	err = pool.QueryRow(ctx, getAccountSQL, userID).Scan(
		&account.ID,
		&account.Tier,
		&account.DealsSavedCount,
		&account.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}
