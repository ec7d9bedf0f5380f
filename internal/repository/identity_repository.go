package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scholarship-api/internal/models"
)

// IdentityRepository persists role records and the owner address.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository constructs the repository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Get fetches the role record of address.
func (r *IdentityRepository) Get(ctx context.Context, address string) (*models.Identity, error) {
	const query = `SELECT address, role, is_active, assigned_by, updated_at FROM identities WHERE address = $1`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, address); err != nil {
		return nil, err
	}
	return &identity, nil
}

// List returns every role record ordered by address.
func (r *IdentityRepository) List(ctx context.Context) ([]models.Identity, error) {
	const query = `SELECT address, role, is_active, assigned_by, updated_at FROM identities ORDER BY role, address`
	identities := make([]models.Identity, 0)
	if err := r.db.SelectContext(ctx, &identities, query); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return identities, nil
}

// Upsert assigns role to address and marks it active.
func (r *IdentityRepository) Upsert(ctx context.Context, address string, role models.Role, assignedBy string) (*models.Identity, error) {
	const query = `INSERT INTO identities (address, role, is_active, assigned_by, updated_at)
	VALUES ($1, $2, TRUE, $3, now())
	ON CONFLICT (address) DO UPDATE SET role = EXCLUDED.role, is_active = TRUE, assigned_by = EXCLUDED.assigned_by, updated_at = now()
	RETURNING address, role, is_active, assigned_by, updated_at`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, address, role, assignedBy); err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	return &identity, nil
}

// RegisterStudent self-registers address as an active Student. An address holding another
// active role is left untouched and ErrConflictingRole is returned.
func (r *IdentityRepository) RegisterStudent(ctx context.Context, address string) (*models.Identity, error) {
	const query = `INSERT INTO identities (address, role, is_active, assigned_by, updated_at)
	VALUES ($1, 'STUDENT', TRUE, $1, now())
	ON CONFLICT (address) DO UPDATE SET role = 'STUDENT', is_active = TRUE, assigned_by = EXCLUDED.assigned_by, updated_at = now()
	WHERE identities.is_active = FALSE OR identities.role = 'STUDENT'
	RETURNING address, role, is_active, assigned_by, updated_at`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictingRole
		}
		return nil, fmt.Errorf("register student: %w", err)
	}
	return &identity, nil
}

// Deactivate marks the role record of address inactive.
func (r *IdentityRepository) Deactivate(ctx context.Context, address, by string) (*models.Identity, error) {
	const query = `UPDATE identities SET is_active = FALSE, assigned_by = $2, updated_at = now()
	WHERE address = $1 AND is_active = TRUE
	RETURNING address, role, is_active, assigned_by, updated_at`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, address, by); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Owner returns the owner record.
func (r *IdentityRepository) Owner(ctx context.Context) (*models.Ownership, error) {
	const query = `SELECT owner_address, updated_at FROM ownership WHERE id = 1`
	var owner models.Ownership
	if err := r.db.GetContext(ctx, &owner, query); err != nil {
		return nil, err
	}
	return &owner, nil
}

// SeedOwner sets the owner only when none exists yet and reports whether it did.
func (r *IdentityRepository) SeedOwner(ctx context.Context, address string) (bool, error) {
	const query = `INSERT INTO ownership (id, owner_address, updated_at) VALUES (1, $1, now()) ON CONFLICT (id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, address)
	if err != nil {
		return false, fmt.Errorf("seed owner: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check owner seed rows: %w", err)
	}
	return rows > 0, nil
}

// TransferOwnership moves ownership from current to next; sql.ErrNoRows when current is no longer the owner.
func (r *IdentityRepository) TransferOwnership(ctx context.Context, current, next string) (*models.Ownership, error) {
	const query = `UPDATE ownership SET owner_address = $2, updated_at = now()
	WHERE id = 1 AND owner_address = $1
	RETURNING owner_address, updated_at`
	var owner models.Ownership
	if err := r.db.GetContext(ctx, &owner, query, current, next); err != nil {
		return nil, err
	}
	return &owner, nil
}
