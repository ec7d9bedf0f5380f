package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scholarship-api/internal/models"
)

const schemeColumns = `id, name, description, eligibility, award_amount, total_slots, available_slots, start_date, end_date,
       required_documents, created_by, is_active, created_at, updated_at`

// SchemeRepository persists scholarship schemes and registrations.
type SchemeRepository struct {
	db *sqlx.DB
}

// NewSchemeRepository constructs the repository.
func NewSchemeRepository(db *sqlx.DB) *SchemeRepository {
	return &SchemeRepository{db: db}
}

// Create inserts a new scheme.
func (r *SchemeRepository) Create(ctx context.Context, scheme *models.Scheme) error {
	if scheme.ID == "" {
		scheme.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if scheme.CreatedAt.IsZero() {
		scheme.CreatedAt = now
	}
	scheme.UpdatedAt = now
	const query = `INSERT INTO scholarship_schemes
	(id, name, description, eligibility, award_amount, total_slots, available_slots, start_date, end_date, required_documents, created_by, is_active, created_at, updated_at)
	VALUES (:id, :name, :description, :eligibility, :award_amount, :total_slots, :available_slots, :start_date, :end_date, :required_documents, :created_by, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, scheme); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create scheme: %w", err)
	}
	return nil
}

// UpsertByName creates the scheme or refreshes its descriptive fields when the name exists.
// Slot counters of an existing scheme are left alone.
func (r *SchemeRepository) UpsertByName(ctx context.Context, scheme *models.Scheme) (bool, error) {
	if scheme.ID == "" {
		scheme.ID = uuid.NewString()
	}
	const query = `INSERT INTO scholarship_schemes
	(id, name, description, eligibility, award_amount, total_slots, available_slots, start_date, end_date, required_documents, created_by, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9, $10, $11)
	ON CONFLICT ((lower(name))) DO UPDATE SET description = EXCLUDED.description, eligibility = EXCLUDED.eligibility,
	    award_amount = EXCLUDED.award_amount, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
	    required_documents = EXCLUDED.required_documents, is_active = EXCLUDED.is_active, updated_at = now()
	RETURNING id, (xmax = 0) AS inserted`
	var out struct {
		ID       string `db:"id"`
		Inserted bool   `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &out, query, scheme.ID, scheme.Name, scheme.Description, scheme.Eligibility, scheme.AwardAmount,
		scheme.TotalSlots, scheme.StartDate, scheme.EndDate, scheme.RequiredDocuments, scheme.CreatedBy, scheme.IsActive); err != nil {
		return false, fmt.Errorf("upsert scheme %s: %w", scheme.Name, err)
	}
	scheme.ID = out.ID
	return out.Inserted, nil
}

// GetByID fetches a scheme by identifier.
func (r *SchemeRepository) GetByID(ctx context.Context, id string) (*models.Scheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM scholarship_schemes WHERE id = $1`
	var scheme models.Scheme
	if err := r.db.GetContext(ctx, &scheme, query, id); err != nil {
		return nil, err
	}
	return &scheme, nil
}

// List returns schemes matching the filter, newest first.
func (r *SchemeRepository) List(ctx context.Context, filter models.SchemeFilter) ([]models.Scheme, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + schemeColumns + ` FROM scholarship_schemes`)
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 1)
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	schemes := make([]models.Scheme, 0)
	if err := r.db.SelectContext(ctx, &schemes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	return schemes, nil
}

// Deactivate closes a scheme for registrations.
func (r *SchemeRepository) Deactivate(ctx context.Context, id string) (*models.Scheme, error) {
	query := `UPDATE scholarship_schemes SET is_active = FALSE, updated_at = now() WHERE id = $1 RETURNING ` + schemeColumns
	var scheme models.Scheme
	if err := r.db.GetContext(ctx, &scheme, query, id); err != nil {
		return nil, err
	}
	return &scheme, nil
}

// Register links user to the scheme and consumes one slot in a single transaction.
func (r *SchemeRepository) Register(ctx context.Context, schemeID, user string, now time.Time) (reg *models.SchemeRegistration, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var scheme models.Scheme
	lockQuery := `SELECT ` + schemeColumns + ` FROM scholarship_schemes WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &scheme, lockQuery, schemeID); err != nil {
		return nil, err
	}
	if !scheme.OpenAt(now) {
		err = ErrSchemeClosed
		return nil, err
	}
	if scheme.AvailableSlots <= 0 {
		err = ErrNoSlots
		return nil, err
	}

	reg = &models.SchemeRegistration{ID: uuid.NewString(), SchemeID: schemeID, UserAddress: user, RegisteredAt: now.UTC(), SchemeName: scheme.Name}
	const insert = `INSERT INTO scheme_registrations (id, scheme_id, user_address, registered_at) VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, insert, reg.ID, reg.SchemeID, reg.UserAddress, reg.RegisteredAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return nil, err
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	const consume = `UPDATE scholarship_schemes SET available_slots = available_slots - 1, updated_at = now() WHERE id = $1 AND available_slots > 0`
	if _, err = tx.ExecContext(ctx, consume, schemeID); err != nil {
		return nil, fmt.Errorf("consume slot: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}
	return reg, nil
}

// RegistrationsByUser lists the schemes a wallet registered for.
func (r *SchemeRepository) RegistrationsByUser(ctx context.Context, user string) ([]models.SchemeRegistration, error) {
	const query = `SELECT r.id, r.scheme_id, r.user_address, r.registered_at, s.name AS scheme_name
	FROM scheme_registrations r JOIN scholarship_schemes s ON s.id = r.scheme_id
	WHERE r.user_address = $1 ORDER BY r.registered_at DESC`
	regs := make([]models.SchemeRegistration, 0)
	if err := r.db.SelectContext(ctx, &regs, query, user); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}
