package models

import (
	"time"

	"github.com/lib/pq"
)

// Scheme describes a funding programme students can register for.
type Scheme struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Description       string         `db:"description" json:"description"`
	Eligibility       string         `db:"eligibility" json:"eligibility"`
	AwardAmount       int64          `db:"award_amount" json:"awardAmount"`
	TotalSlots        int            `db:"total_slots" json:"totalSlots"`
	AvailableSlots    int            `db:"available_slots" json:"availableSlots"`
	StartDate         time.Time      `db:"start_date" json:"startDate"`
	EndDate           time.Time      `db:"end_date" json:"endDate"`
	RequiredDocuments pq.StringArray `db:"required_documents" json:"requiredDocuments"`
	CreatedBy         string         `db:"created_by" json:"createdBy"`
	IsActive          bool           `db:"is_active" json:"isActive"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// OpenAt reports whether the scheme accepts registrations on day t.
func (s Scheme) OpenAt(t time.Time) bool {
	if !s.IsActive {
		return false
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(s.StartDate.Year(), s.StartDate.Month(), s.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(s.EndDate.Year(), s.EndDate.Month(), s.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && !day.After(end)
}

// SchemeFilter constrains scheme listings.
type SchemeFilter struct {
	ActiveOnly bool
	Search     string
}

// SchemeRegistration links a wallet to a scheme.
type SchemeRegistration struct {
	ID           string    `db:"id" json:"id"`
	SchemeID     string    `db:"scheme_id" json:"schemeId"`
	UserAddress  string    `db:"user_address" json:"user"`
	RegisteredAt time.Time `db:"registered_at" json:"registeredAt"`
	SchemeName   string    `db:"scheme_name" json:"schemeName,omitempty"`
}
