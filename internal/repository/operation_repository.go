package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scholarship-api/internal/models"
)

// OperationRepository persists operation tracking rows.
type OperationRepository struct {
	db *sqlx.DB
}

// NewOperationRepository constructs the repository.
func NewOperationRepository(db *sqlx.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// Create inserts a new operation row.
func (r *OperationRepository) Create(ctx context.Context, op *models.Operation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Status == "" {
		op.Status = models.OperationPending
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO operations (id, kind, actor_address, application_id, status, error_code, error_message, created_at, finished_at)
	VALUES (:id, :kind, :actor_address, :application_id, :status, :error_code, :error_message, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, op); err != nil {
		return fmt.Errorf("create operation: %w", err)
	}
	return nil
}

// GetByID fetches an operation by identifier.
func (r *OperationRepository) GetByID(ctx context.Context, id string) (*models.Operation, error) {
	const query = `SELECT id, kind, actor_address, application_id, status, error_code, error_message, created_at, finished_at
	FROM operations WHERE id = $1`
	var op models.Operation
	if err := r.db.GetContext(ctx, &op, query, id); err != nil {
		return nil, err
	}
	return &op, nil
}

// Finish moves a pending operation to a terminal status; sql.ErrNoRows when it already left PENDING.
func (r *OperationRepository) Finish(ctx context.Context, id string, status models.OperationStatus, code, message *string) error {
	const query = `UPDATE operations SET status = $2, error_code = $3, error_message = $4, finished_at = $5
	WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, status, code, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish operation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check operation update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExpirePending fails operations still pending since before cutoff and returns how many moved.
func (r *OperationRepository) ExpirePending(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	const query = `UPDATE operations SET status = 'FAILED', error_code = 'ABANDONED', error_message = $2, finished_at = now()
	WHERE status = 'PENDING' AND created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff, reason)
	if err != nil {
		return 0, fmt.Errorf("expire pending operations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check expired rows: %w", err)
	}
	return rows, nil
}

// CountPending returns the number of operations awaiting a result.
func (r *OperationRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM operations WHERE status = 'PENDING'`); err != nil {
		return 0, fmt.Errorf("count pending operations: %w", err)
	}
	return count, nil
}
