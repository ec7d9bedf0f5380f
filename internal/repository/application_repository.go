package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scholarship-api/internal/models"
)

const applicationColumns = `id, student_address, name, email, phone, aadhar_number, income, documents_reference,
       status, sag_verified_count, admin_approved_count, disbursement_amount, is_disbursed, applied_at, updated_at`

// VoteDecider computes the next record under the row lock. alreadyVoted reflects the stored votes.
type VoteDecider func(current models.Application, alreadyVoted bool) (models.Application, error)

// DisburseDecider computes the next record under the pool and application locks.
type DisburseDecider func(current models.Application, poolBalance int64) (models.Application, error)

// ApplicationRepository persists applications, their votes and payouts.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new application; the id comes from the table sequence.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	const query = `INSERT INTO applications
	(student_address, name, email, phone, aadhar_number, income, documents_reference, status, sag_verified_count, admin_approved_count, disbursement_amount, is_disbursed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, $8, FALSE)
	RETURNING ` + applicationColumns
	row := r.db.QueryRowxContext(ctx, query,
		app.StudentAddress, app.Name, app.Email, app.Phone, app.AadharNumber, app.Income, app.DocumentsReference, app.DisbursementAmount)
	if err := row.StructScan(app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID fetches an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByStudent returns the caller's applications ordered by id.
func (r *ApplicationRepository) ListByStudent(ctx context.Context, address string) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE lower(student_address) = lower($1) ORDER BY id`
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, address); err != nil {
		return nil, fmt.Errorf("list applications by student: %w", err)
	}
	return apps, nil
}

// ListByStatus returns the work queue for one status ordered by id.
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE status = $1 ORDER BY id`
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, status); err != nil {
		return nil, fmt.Errorf("list applications by status: %w", err)
	}
	return apps, nil
}

// ListAll returns every application ordered by id.
func (r *ApplicationRepository) ListAll(ctx context.Context) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY id`
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// HasVoted reports whether address already voted on the stage of the application.
func (r *ApplicationRepository) HasVoted(ctx context.Context, id int64, stage models.VoteStage, address string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM application_votes WHERE application_id = $1 AND stage = $2 AND voter_address = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id, stage, address); err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// Votes lists the votes cast on an application, optionally limited to one stage.
func (r *ApplicationRepository) Votes(ctx context.Context, id int64, stage models.VoteStage) ([]models.ApplicationVote, error) {
	query := `SELECT application_id, stage, voter_address, voted_at FROM application_votes WHERE application_id = $1`
	args := []interface{}{id}
	if stage != "" {
		query += ` AND stage = $2`
		args = append(args, stage)
	}
	query += ` ORDER BY voted_at`
	votes := make([]models.ApplicationVote, 0)
	if err := r.db.SelectContext(ctx, &votes, query, args...); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

// CountByStatus aggregates the register per status.
func (r *ApplicationRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM applications GROUP BY status ORDER BY status`
	counts := make([]models.StatusCount, 0, 4)
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	return counts, nil
}

// ApplyVote records a vote and persists the decided record in one transaction.
func (r *ApplicationRepository) ApplyVote(ctx context.Context, id int64, stage models.VoteStage, voter string, decide VoteDecider) (result *models.Application, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin vote transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Application
	lockQuery := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return nil, err
	}

	var voted bool
	const votedQuery = `SELECT EXISTS (SELECT 1 FROM application_votes WHERE application_id = $1 AND stage = $2 AND voter_address = $3)`
	if err = tx.GetContext(ctx, &voted, votedQuery, id, stage, voter); err != nil {
		return nil, fmt.Errorf("check vote: %w", err)
	}

	next, err := decide(current, voted)
	if err != nil {
		return nil, err
	}

	const insertVote = `INSERT INTO application_votes (application_id, stage, voter_address, voted_at) VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, insertVote, id, stage, voter, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return nil, err
		}
		return nil, fmt.Errorf("insert vote: %w", err)
	}

	updateQuery := `UPDATE applications
	SET status = $1, sag_verified_count = $2, admin_approved_count = $3, updated_at = now()
	WHERE id = $4 AND status = $5 AND sag_verified_count = $6 AND admin_approved_count = $7
	RETURNING ` + applicationColumns
	var updated models.Application
	if err = tx.GetContext(ctx, &updated, updateQuery,
		next.Status, next.SagVerifiedCount, next.AdminApprovedCount,
		id, current.Status, current.SagVerifiedCount, current.AdminApprovedCount); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit vote: %w", err)
	}
	return &updated, nil
}

// Disburse pays the application out of the pool in one transaction.
func (r *ApplicationRepository) Disburse(ctx context.Context, id int64, actor string, decide DisburseDecider) (result *models.Disbursement, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin disbursement transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var balance int64
	if err = tx.GetContext(ctx, &balance, `SELECT balance FROM pool WHERE id = 1 FOR UPDATE`); err != nil {
		return nil, fmt.Errorf("lock pool: %w", err)
	}

	var current models.Application
	lockQuery := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return nil, err
	}

	next, err := decide(current, balance)
	if err != nil {
		return nil, err
	}

	var remaining int64
	const debit = `UPDATE pool SET balance = balance - $1, updated_at = now() WHERE id = 1 AND balance >= $1 RETURNING balance`
	if err = tx.GetContext(ctx, &remaining, debit, current.DisbursementAmount); err != nil {
		return nil, err
	}

	entry := models.LedgerEntry{
		Kind:                models.LedgerPayout,
		Amount:              current.DisbursementAmount,
		ActorAddress:        actor,
		CounterpartyAddress: &current.StudentAddress,
		ApplicationID:       &current.ID,
		BalanceAfter:        remaining,
	}
	const insertEntry = `INSERT INTO pool_ledger (kind, amount, actor_address, counterparty_address, application_id, balance_after)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	if err = tx.QueryRowxContext(ctx, insertEntry,
		entry.Kind, entry.Amount, entry.ActorAddress, entry.CounterpartyAddress, entry.ApplicationID, entry.BalanceAfter).
		Scan(&entry.ID, &entry.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return nil, err
		}
		return nil, fmt.Errorf("insert payout: %w", err)
	}

	updateQuery := `UPDATE applications SET status = $1, is_disbursed = $2, updated_at = now()
	WHERE id = $3 AND status = $4 AND is_disbursed = FALSE
	RETURNING ` + applicationColumns
	var updated models.Application
	if err = tx.GetContext(ctx, &updated, updateQuery, next.Status, next.IsDisbursed, id, current.Status); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit disbursement: %w", err)
	}
	return &models.Disbursement{Application: &updated, Entry: &entry}, nil
}

// DisbursedTotal sums all payouts.
func (r *ApplicationRepository) DisbursedTotal(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := r.db.GetContext(ctx, &total, `SELECT SUM(amount) FROM pool_ledger WHERE kind = 'PAYOUT'`); err != nil {
		return 0, fmt.Errorf("sum payouts: %w", err)
	}
	return total.Int64, nil
}
