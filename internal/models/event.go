package models

import "time"

// EventType names a workflow notification.
type EventType string

const (
	EventApplicationSubmitted EventType = "ApplicationSubmitted"
	EventVerificationOccurred EventType = "VerificationOccurred"
	EventApprovalOccurred     EventType = "ApprovalOccurred"
	EventFundsDisbursed       EventType = "FundsDisbursed"
	EventPoolDeposited        EventType = "PoolDeposited"
	EventRoleChanged          EventType = "RoleChanged"
)

// Event is a live-refresh notification fanned out to subscribers.
type Event struct {
	Type          EventType `json:"type"`
	ApplicationID *int64    `json:"applicationId,omitempty"`
	Actor         string    `json:"actor"`
	Subject       string    `json:"subject,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	Origin        string    `json:"origin,omitempty"`
}
