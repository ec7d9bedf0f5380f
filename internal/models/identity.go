package models

import (
	"fmt"
	"strings"
	"time"
)

// Role represents the workflow roles a wallet address can hold.
type Role string

const (
	RoleNone          Role = "NONE"
	RoleStudent       Role = "STUDENT"
	RoleSagBureau     Role = "SAG_BUREAU"
	RoleAdmin         Role = "ADMIN"
	RoleFinanceBureau Role = "FINANCE_BUREAU"
)

// Valid reports whether r is an assignable role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleSagBureau, RoleAdmin, RoleFinanceBureau:
		return true
	default:
		return false
	}
}

// ParseRole parses a role name case-insensitively; RoleNone is not assignable.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return RoleNone, fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Identity is the role record of one wallet address.
type Identity struct {
	Address    string    `db:"address" json:"address"`
	Role       Role      `db:"role" json:"role"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	AssignedBy *string   `db:"assigned_by" json:"assignedBy,omitempty"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Capability is the per-session authorization snapshot of a wallet.
type Capability struct {
	Address  string `json:"address"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"isActive"`
	IsOwner  bool   `json:"isOwner"`
}

// EffectiveRole returns the role honoured for gating; inactive records are roleless.
func (c Capability) EffectiveRole() Role {
	if !c.IsActive {
		return RoleNone
	}
	return c.Role
}

// Allows reports whether the capability may act as role. The owner is allowed everything.
func (c Capability) Allows(role Role) bool {
	if c.IsOwner {
		return true
	}
	return c.IsActive && c.Role == role
}

// AllowsAny reports whether any of roles is allowed.
func (c Capability) AllowsAny(roles ...Role) bool {
	for _, role := range roles {
		if c.Allows(role) {
			return true
		}
	}
	return false
}

// Ownership holds the distinguished owner address.
type Ownership struct {
	OwnerAddress string    `db:"owner_address" json:"owner"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
