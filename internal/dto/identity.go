package dto

// AssignRoleRequest grants a role to an address.
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=STUDENT SAG_BUREAU ADMIN FINANCE_BUREAU"`
}

// TransferOwnershipRequest hands the owner capability to another address.
type TransferOwnershipRequest struct {
	NewOwner string `json:"newOwner" validate:"required"`
}

// UserRoleResponse answers a role lookup.
type UserRoleResponse struct {
	Address  string `json:"address"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// DepositRequest adds funds to the pool.
type DepositRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}
