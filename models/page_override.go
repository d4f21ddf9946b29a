package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminPageOverride is a per-admin additive set of page grants
type AdminPageOverride struct {
	AdminID   uuid.UUID `json:"admin_id" db:"admin_id"`
	PageKeys  []string  `json:"pageKeys" db:"page_keys"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the AdminPageOverride model
func (AdminPageOverride) TableName() string {
	return "admin_page_overrides"
}

// NewAdminPageOverride creates an override holding the normalized keys
func NewAdminPageOverride(adminID uuid.UUID, pageKeys []string) *AdminPageOverride {
	return &AdminPageOverride{
		AdminID:   adminID,
		PageKeys:  NormalizePageKeys(pageKeys),
		UpdatedAt: time.Now(),
	}
}
