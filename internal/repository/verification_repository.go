package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scholarship-api/internal/models"
)

// VerificationRepository persists document authenticity verdicts.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create stores one verdict row.
func (r *VerificationRepository) Create(ctx context.Context, v *models.DocumentVerification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CheckedAt.IsZero() {
		v.CheckedAt = time.Now().UTC()
	}
	if len(v.ExtractedFields) == 0 {
		v.ExtractedFields = []byte(`{}`)
	}
	if len(v.Recommendations) == 0 {
		v.Recommendations = []byte(`[]`)
	}
	const query = `INSERT INTO document_verifications
	(id, application_id, content_id, status, authenticity_score, confidence_score, tampering_detected, extracted_fields, recommendations, error_message, checked_at)
	VALUES (:id, :application_id, :content_id, :status, :authenticity_score, :confidence_score, :tampering_detected, :extracted_fields, :recommendations, :error_message, :checked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("create document verification: %w", err)
	}
	return nil
}

// ListByApplication returns the verdicts of an application, newest first.
func (r *VerificationRepository) ListByApplication(ctx context.Context, applicationID int64) ([]models.DocumentVerification, error) {
	const query = `SELECT id, application_id, content_id, status, authenticity_score, confidence_score, tampering_detected,
       extracted_fields, recommendations, error_message, checked_at
	FROM document_verifications WHERE application_id = $1 ORDER BY checked_at DESC`
	list := make([]models.DocumentVerification, 0)
	if err := r.db.SelectContext(ctx, &list, query, applicationID); err != nil {
		return nil, fmt.Errorf("list document verifications: %w", err)
	}
	return list, nil
}
