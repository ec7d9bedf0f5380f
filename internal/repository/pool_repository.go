package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scholarship-api/internal/models"
)

// PoolRepository persists the pooled funds balance and its ledger.
type PoolRepository struct {
	db *sqlx.DB
}

// NewPoolRepository constructs the repository.
func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// Balance returns the current pooled balance.
func (r *PoolRepository) Balance(ctx context.Context) (*models.PoolBalance, error) {
	var balance models.PoolBalance
	if err := r.db.GetContext(ctx, &balance, `SELECT balance, updated_at FROM pool WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("get pool balance: %w", err)
	}
	return &balance, nil
}

// Deposit credits the pool and records the ledger entry in one transaction.
func (r *PoolRepository) Deposit(ctx context.Context, actor string, amount int64) (entry *models.LedgerEntry, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin deposit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var balance int64
	const credit = `UPDATE pool SET balance = balance + $1, updated_at = now() WHERE id = 1 RETURNING balance`
	if err = tx.GetContext(ctx, &balance, credit, amount); err != nil {
		return nil, fmt.Errorf("credit pool: %w", err)
	}

	entry = &models.LedgerEntry{Kind: models.LedgerDeposit, Amount: amount, ActorAddress: actor, BalanceAfter: balance}
	const insertEntry = `INSERT INTO pool_ledger (kind, amount, actor_address, balance_after) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err = tx.QueryRowxContext(ctx, insertEntry, entry.Kind, entry.Amount, entry.ActorAddress, entry.BalanceAfter).
		Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert deposit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deposit: %w", err)
	}
	return entry, nil
}

// Ledger lists pool movements, newest first.
func (r *PoolRepository) Ledger(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, kind, amount, actor_address, counterparty_address, application_id, balance_after, created_at
	FROM pool_ledger ORDER BY id DESC LIMIT $1`
	entries := make([]models.LedgerEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list pool ledger: %w", err)
	}
	return entries, nil
}
