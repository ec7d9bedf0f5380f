package dto

import "time"

// CreateSchemeRequest defines a new scholarship scheme.
type CreateSchemeRequest struct {
	Name              string    `json:"name" yaml:"name" validate:"required,max=200"`
	Description       string    `json:"description" yaml:"description"`
	Eligibility       string    `json:"eligibility" yaml:"eligibility"`
	AwardAmount       int64     `json:"awardAmount" yaml:"awardAmount" validate:"gte=0"`
	TotalSlots        int       `json:"totalSlots" yaml:"totalSlots" validate:"required,gt=0"`
	StartDate         time.Time `json:"startDate" yaml:"startDate" validate:"required"`
	EndDate           time.Time `json:"endDate" yaml:"endDate" validate:"required,gtefield=StartDate"`
	RequiredDocuments []string  `json:"requiredDocuments" yaml:"requiredDocuments"`
}

// SchemeQuery filters scheme listings.
type SchemeQuery struct {
	ActiveOnly bool   `form:"active"`
	Search     string `form:"q"`
}
