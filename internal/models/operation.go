package models

import "time"

// OperationKind names the mutating action an operation performs.
type OperationKind string

const (
	OperationRegisterStudent   OperationKind = "REGISTER_STUDENT"
	OperationSubmitApplication OperationKind = "SUBMIT_APPLICATION"
	OperationVerify            OperationKind = "VERIFY"
	OperationApprove           OperationKind = "APPROVE"
	OperationDisburse          OperationKind = "DISBURSE"
	OperationAssignRole        OperationKind = "ASSIGN_ROLE"
	OperationRevokeRole        OperationKind = "REVOKE_ROLE"
	OperationTransferOwnership OperationKind = "TRANSFER_OWNERSHIP"
	OperationDeposit           OperationKind = "DEPOSIT"
)

// OperationStatus is the lifecycle state of an operation.
type OperationStatus string

const (
	OperationPending   OperationStatus = "PENDING"
	OperationConfirmed OperationStatus = "CONFIRMED"
	OperationFailed    OperationStatus = "FAILED"
	OperationCancelled OperationStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s OperationStatus) Terminal() bool {
	return s == OperationConfirmed || s == OperationFailed || s == OperationCancelled
}

// Operation tracks one mutating action from submission to its known result.
type Operation struct {
	ID            string          `db:"id" json:"id"`
	Kind          OperationKind   `db:"kind" json:"kind"`
	ActorAddress  string          `db:"actor_address" json:"actor"`
	ApplicationID *int64          `db:"application_id" json:"applicationId,omitempty"`
	Status        OperationStatus `db:"status" json:"status"`
	ErrorCode     *string         `db:"error_code" json:"errorCode,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	FinishedAt    *time.Time      `db:"finished_at" json:"finishedAt,omitempty"`
	Result        interface{}     `db:"-" json:"result,omitempty"`
}
