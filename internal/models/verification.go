package models

import (
	"encoding/json"
	"time"
)

// VerificationStatus is the outcome of an authenticity check.
type VerificationStatus string

const (
	VerificationCompleted VerificationStatus = "COMPLETED"
	VerificationFailed    VerificationStatus = "FAILED"
)

// Verdict is the structured response of the authenticity checker.
type Verdict struct {
	AuthenticityScore float64           `json:"authenticityScore"`
	ConfidenceScore   float64           `json:"confidenceScore"`
	TamperingDetected bool              `json:"tamperingDetected"`
	ExtractedFields   map[string]string `json:"extractedFields"`
	Recommendations   []string          `json:"recommendations"`
}

// DocumentVerification stores one verdict for one document of an application.
type DocumentVerification struct {
	ID                string             `db:"id" json:"id"`
	ApplicationID     int64              `db:"application_id" json:"applicationId"`
	ContentID         string             `db:"content_id" json:"contentId"`
	Status            VerificationStatus `db:"status" json:"status"`
	AuthenticityScore *float64           `db:"authenticity_score" json:"authenticityScore,omitempty"`
	ConfidenceScore   *float64           `db:"confidence_score" json:"confidenceScore,omitempty"`
	TamperingDetected *bool              `db:"tampering_detected" json:"tamperingDetected,omitempty"`
	ExtractedFields   json.RawMessage    `db:"extracted_fields" json:"extractedFields,omitempty"`
	Recommendations   json.RawMessage    `db:"recommendations" json:"recommendations,omitempty"`
	ErrorMessage      *string            `db:"error_message" json:"errorMessage,omitempty"`
	CheckedAt         time.Time          `db:"checked_at" json:"checkedAt"`
}
