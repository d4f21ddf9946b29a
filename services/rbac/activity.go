package rbac

import (
	"github.com/glassline/admin-dashboard/models"
)

// ActivityRecorder accepts activity entries without blocking the caller
type ActivityRecorder interface {
	Record(entry *models.ActivityLog)
}

type nopRecorder struct{}

func (nopRecorder) Record(*models.ActivityLog) {}

func recorderOrNop(r ActivityRecorder) ActivityRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// Entity types written to the activity log
const (
	EntityPosition     = "position"
	EntityPageOverride = "page_override"
	EntityPage         = "page"
)

