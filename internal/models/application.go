package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ApplicationStatus is the ordered workflow status of an application.
type ApplicationStatus int16

const (
	StatusApplied ApplicationStatus = iota
	StatusSagVerified
	StatusAdminApproved
	StatusDisbursed
)

var statusNames = [...]string{"APPLIED", "SAG_VERIFIED", "ADMIN_APPROVED", "DISBURSED"}

// String renders the status name.
func (s ApplicationStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("STATUS(%d)", int16(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the four workflow statuses.
func (s ApplicationStatus) Valid() bool {
	return s >= StatusApplied && s <= StatusDisbursed
}

// Next returns the following status; Disbursed is terminal.
func (s ApplicationStatus) Next() (ApplicationStatus, bool) {
	if !s.Valid() || s == StatusDisbursed {
		return s, false
	}
	return s + 1, true
}

// Less reports whether s precedes other in the workflow order.
func (s ApplicationStatus) Less(other ApplicationStatus) bool {
	return s < other
}

// MarshalJSON encodes the status by name.
func (s ApplicationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the name or the ordinal.
func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var n int16
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid status: %s", string(data))
		}
		raw = strconv.Itoa(int(n))
	}
	parsed, err := ParseApplicationStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseApplicationStatus parses a status name (case-insensitive) or its ordinal.
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for i, name := range statusNames {
		if value == name {
			return ApplicationStatus(i), nil
		}
	}
	if n, err := strconv.Atoi(value); err == nil {
		status := ApplicationStatus(n)
		if status.Valid() {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown application status %q", raw)
}

// Application is one student submission and its workflow state.
type Application struct {
	ID                 int64             `db:"id" json:"id"`
	StudentAddress     string            `db:"student_address" json:"student"`
	Name               string            `db:"name" json:"name"`
	Email              string            `db:"email" json:"email"`
	Phone              string            `db:"phone" json:"phone"`
	AadharNumber       string            `db:"aadhar_number" json:"aadharNumber"`
	Income             string            `db:"income" json:"income"`
	DocumentsReference string            `db:"documents_reference" json:"documentsReference"`
	Status             ApplicationStatus `db:"status" json:"status"`
	SagVerifiedCount   int               `db:"sag_verified_count" json:"sagVerifiedCount"`
	AdminApprovedCount int               `db:"admin_approved_count" json:"adminApprovedCount"`
	DisbursementAmount int64             `db:"disbursement_amount" json:"disbursementAmount"`
	IsDisbursed        bool              `db:"is_disbursed" json:"isDisbursed"`
	AppliedAt          time.Time         `db:"applied_at" json:"appliedAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// DocumentReferences splits the comma-joined reference list preserving order.
func (a Application) DocumentReferences() []string {
	return SplitReferences(a.DocumentsReference)
}

// SplitReferences splits a comma-joined reference list, dropping empty entries.
func SplitReferences(joined string) []string {
	parts := strings.Split(joined, ",")
	refs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			refs = append(refs, trimmed)
		}
	}
	return refs
}

// VoteStage identifies which threshold a vote counts toward.
type VoteStage string

const (
	VoteStageSag   VoteStage = "SAG"
	VoteStageAdmin VoteStage = "ADMIN"
)

// ParseVoteStage parses a stage name case-insensitively.
func ParseVoteStage(raw string) (VoteStage, error) {
	switch VoteStage(strings.ToUpper(strings.TrimSpace(raw))) {
	case VoteStageSag:
		return VoteStageSag, nil
	case VoteStageAdmin:
		return VoteStageAdmin, nil
	default:
		return "", fmt.Errorf("unknown vote stage %q", raw)
	}
}

// ApplicationVote records one distinct voter toward a stage threshold.
type ApplicationVote struct {
	ApplicationID int64     `db:"application_id" json:"applicationId"`
	Stage         VoteStage `db:"stage" json:"stage"`
	VoterAddress  string    `db:"voter_address" json:"voter"`
	VotedAt       time.Time `db:"voted_at" json:"votedAt"`
}

// StatusCount is one row of the per-status aggregate.
type StatusCount struct {
	Status ApplicationStatus `db:"status" json:"status"`
	Count  int               `db:"count" json:"count"`
}

// DashboardSummary aggregates the application register and the pool.
type DashboardSummary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	DisbursedTotal int64          `json:"disbursedTotal"`
	PoolBalance    int64          `json:"poolBalance"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}
