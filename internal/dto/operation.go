package dto

import "github.com/noah-isme/scholarship-api/internal/models"

// MutationResponse carries the re-read record of a confirmed mutation with its operation.
type MutationResponse struct {
	Record    interface{}       `json:"record,omitempty"`
	Operation *models.Operation `json:"operation,omitempty"`
}

// SessionResponse describes the current wallet session.
type SessionResponse struct {
	Address    string            `json:"address"`
	ChainID    int64             `json:"chainId"`
	ExpiresAt  int64             `json:"expiresAt"`
	Capability models.Capability `json:"capability"`
}
