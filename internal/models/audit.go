package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionRegisterStudent   = "REGISTER_STUDENT"
	AuditActionSubmit            = "APPLICATION_SUBMIT"
	AuditActionVerify            = "APPLICATION_VERIFY"
	AuditActionApprove           = "APPLICATION_APPROVE"
	AuditActionDisburse          = "APPLICATION_DISBURSE"
	AuditActionRoleAssign        = "ROLE_ASSIGN"
	AuditActionRoleRevoke        = "ROLE_REVOKE"
	AuditActionOwnershipTransfer = "OWNERSHIP_TRANSFER"
	AuditActionPoolDeposit       = "POOL_DEPOSIT"
	AuditActionSchemeCreate      = "SCHEME_CREATE"
	AuditActionSchemeDeactivate  = "SCHEME_DEACTIVATE"
	AuditActionExport            = "APPLICATION_EXPORT"
	AuditActionDocumentUpload    = "DOCUMENT_UPLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	ActorAddress *string   `db:"actor_address" json:"actor,omitempty"`
	Action       string    `db:"action" json:"action"`
	Resource     string    `db:"resource" json:"resource"`
	ResourceID   *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues    []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues    []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ipAddress"`
	UserAgent    string    `db:"user_agent" json:"userAgent"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
