package dto

import "time"

// SubmitApplicationRequest is the payload of a new scholarship application.
type SubmitApplicationRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone" validate:"required,min=6,max=20"`
	AadharNumber string   `json:"aadharNumber" validate:"required,len=12,numeric"`
	Income       string   `json:"income" validate:"required,numeric"`
	Documents    []string `json:"documents" validate:"required,min=1,dive,required"`
}

// ApplicationVotesResponse lists the voters of one stage.
type ApplicationVotesResponse struct {
	ApplicationID int64    `json:"applicationId"`
	Stage         string   `json:"stage"`
	Voters        []string `json:"voters"`
	CallerVoted   bool     `json:"callerVoted"`
}

// VoteStatusResponse answers whether one address voted at a stage.
type VoteStatusResponse struct {
	ApplicationID int64  `json:"applicationId"`
	Stage         string `json:"stage"`
	Address       string `json:"address"`
	Voted         bool   `json:"voted"`
}

// ExportFormat names a register rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered application register.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
	GeneratedAt time.Time
}
