package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/glassline/admin-dashboard/internal/realtime"
	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/utils"
	"go.uber.org/zap"
)

// ActivityLister lists activity log entries
type ActivityLister interface {
	List(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLog, error)
}

// ActivityHandler serves the activity feed
type ActivityHandler struct {
	activity   ActivityLister
	subscriber realtime.Subscriber
	logger     *zap.Logger
}

// NewActivityHandler creates a new ActivityHandler. subscriber may be nil,
// in which case the live stream is unavailable.
func NewActivityHandler(activity ActivityLister, subscriber realtime.Subscriber, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity:   activity,
		subscriber: subscriber,
		logger:     logger,
	}
}

// HandleList handles GET /api/v1/activity-logs
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter repositories.ActivityLogFilter
	if raw := q.Get("admin_id"); raw != "" {
		id, err := utils.ParseUUID(raw, "admin_id")
		if err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		filter.AdminID = &id
	}
	filter.Action = models.ActivityAction(q.Get("action"))
	filter.EntityType = q.Get("entity_type")

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		_ = utils.WriteBadRequest(w, "limit must be an integer", nil)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		_ = utils.WriteBadRequest(w, "offset must be an integer", nil)
		return
	}

	entries, err := h.activity.List(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]interface{}{
		"entries": entries,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// HandleStream handles GET /api/v1/activity-logs/stream. New entries are
// pushed as server-sent events until the client disconnects.
func (h *ActivityHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if h.subscriber == nil {
		_ = utils.WriteServiceUnavailable(w, "Live activity feed is not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = utils.WriteInternalServerError(w, "Streaming unsupported")
		return
	}

	// The stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.subscriber.Subscribe(ctx, realtime.ChannelActivity, func(payload []byte) {
		if _, err := fmt.Fprintf(w, "event: activity\ndata: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	})
	if err != nil {
		h.logger.Warn("activity stream ended",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
