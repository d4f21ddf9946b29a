package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction represents the type of action recorded in the activity log
type ActivityAction string

const (
	ActivityActionCreate ActivityAction = "create"
	ActivityActionUpdate ActivityAction = "update"
	ActivityActionDelete ActivityAction = "delete"
	ActivityActionLogin  ActivityAction = "login"
	ActivityActionLogout ActivityAction = "logout"
	ActivityActionUpload ActivityAction = "upload"
	ActivityActionView   ActivityAction = "view"
	ActivityActionExport ActivityAction = "export"
	ActivityActionImport ActivityAction = "import"
)

// IsValid reports whether the action is one of the fixed activity actions
func (a ActivityAction) IsValid() bool {
	switch a {
	case ActivityActionCreate, ActivityActionUpdate, ActivityActionDelete,
		ActivityActionLogin, ActivityActionLogout, ActivityActionUpload,
		ActivityActionView, ActivityActionExport, ActivityActionImport:
		return true
	}
	return false
}

// ActivityLog represents an append-only audit record of an admin action
type ActivityLog struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	AdminID    *uuid.UUID     `json:"admin_id,omitempty" db:"admin_id"`
	AdminName  string         `json:"admin_name" db:"admin_name"`
	Action     ActivityAction `json:"action" db:"action"`
	EntityType string         `json:"entity_type" db:"entity_type"` // product, position, admin_account, ...
	EntityID   string         `json:"entity_id,omitempty" db:"entity_id"`
	Details    string         `json:"details" db:"details"`
	Page       string         `json:"page,omitempty" db:"page"`
	Metadata   Metadata       `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the ActivityLog model
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// NewActivityLog creates a new ActivityLog instance
func NewActivityLog(action ActivityAction, entityType string) *ActivityLog {
	return &ActivityLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		CreatedAt:  time.Now(),
	}
}

// WithAdmin sets the acting admin
func (l *ActivityLog) WithAdmin(adminID uuid.UUID, adminName string) *ActivityLog {
	l.AdminID = &adminID
	l.AdminName = adminName
	return l
}

// WithEntity sets the entity identifier
func (l *ActivityLog) WithEntity(entityID string) *ActivityLog {
	l.EntityID = entityID
	return l
}

// WithDetails sets the human-readable description
func (l *ActivityLog) WithDetails(details string) *ActivityLog {
	l.Details = details
	return l
}

// WithPage sets the dashboard page tag
func (l *ActivityLog) WithPage(page string) *ActivityLog {
	l.Page = page
	return l
}

// WithMeta sets a single metadata field
func (l *ActivityLog) WithMeta(key string, value any) *ActivityLog {
	if l.Metadata == nil {
		l.Metadata = Metadata{}
	}
	l.Metadata[key] = value
	return l
}

// WithChange records before and after values in the metadata
func (l *ActivityLog) WithChange(before, after any) *ActivityLog {
	return l.WithMeta(MetadataKeyBefore, before).WithMeta(MetadataKeyAfter, after)
}
