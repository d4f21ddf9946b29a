package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdminRole is the coarse role tag carried by an admin account
type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleManager    AdminRole = "manager"
	RoleEmployee   AdminRole = "employee"
	RoleSuperadmin AdminRole = "superadmin"
)

// IsValid reports whether the role is one of the known roles.
// Comparison uses the normalized form so "SuperAdmin" is accepted.
func (r AdminRole) IsValid() bool {
	switch AdminRole(NormalizeName(string(r))) {
	case RoleAdmin, RoleManager, RoleEmployee, RoleSuperadmin:
		return true
	}
	return false
}

// AdminAccount represents a login-capable dashboard identity
type AdminAccount struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         AdminRole  `json:"role" db:"role"`
	Position     string     `json:"position" db:"position"` // Soft reference to Position.Name
	IsActive     bool       `json:"is_active" db:"is_active"`
	FullName     string     `json:"full_name" db:"full_name"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the AdminAccount model
func (AdminAccount) TableName() string {
	return "admin_accounts"
}

// NewAdminAccount creates a new active AdminAccount
func NewAdminAccount(username, passwordHash string, role AdminRole, position, fullName string) *AdminAccount {
	now := time.Now()
	return &AdminAccount{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Role:         role,
		Position:     strings.TrimSpace(position),
		IsActive:     true,
		FullName:     strings.TrimSpace(fullName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsSuperadmin returns true when either the role or the position normalizes to superadmin
func (a *AdminAccount) IsSuperadmin() bool {
	return IsSuperadminName(string(a.Role)) || IsSuperadminName(a.Position)
}

// DisplayName returns the full name, falling back to the username
func (a *AdminAccount) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Username
}
