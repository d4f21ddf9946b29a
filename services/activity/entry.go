package activity

import (
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
)

// Builder assembles an activity entry attributed to an actor
type Builder struct {
	log *models.ActivityLog
}

// Entry starts an entry for actor. The system actor is recorded by name only.
func Entry(actor services.Actor, action models.ActivityAction, entityType string) *Builder {
	log := models.NewActivityLog(action, entityType)
	if actor.IsSystem() {
		log.AdminName = actor.Username
	} else {
		log.WithAdmin(actor.ID, actor.Username)
	}
	return &Builder{log: log}
}

// Entity sets the affected entity's identifier
func (b *Builder) Entity(id string) *Builder {
	b.log.WithEntity(id)
	return b
}

// Details sets the human-readable description
func (b *Builder) Details(msg string) *Builder {
	b.log.WithDetails(msg)
	return b
}

// Page tags the entry with the dashboard page it came from
func (b *Builder) Page(tag string) *Builder {
	b.log.WithPage(tag)
	return b
}

// Meta attaches one metadata key, overwriting an earlier value for the same key
func (b *Builder) Meta(key string, value any) *Builder {
	b.log.WithMeta(key, value)
	return b
}

// Change records before and after values
func (b *Builder) Change(before, after any) *Builder {
	b.log.WithChange(before, after)
	return b
}

// Build returns the assembled entry
func (b *Builder) Build() *models.ActivityLog {
	return b.log
}
