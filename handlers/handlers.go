// Package handlers implements the dashboard's HTTP API. Handlers are thin:
// they decode and validate the request, call a service with the acting
// admin, and map domain errors with HandleServiceError.
package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requireActor returns the authenticated admin or writes a 401
func requireActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
	}
	return actor, ok
}

// mutationContext detaches a write from client disconnects so a mutation and
// its activity entry are not abandoned halfway.
func mutationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// pathParam returns an unescaped chi URL parameter
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// idParam parses a UUID path parameter, writing a 400 on failure
func idParam(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, key), key)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate reads a JSON body into dst and validates it
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	if err := utils.DecodeJSON(r, dst); err != nil {
		logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", map[string]interface{}{"reason": err.Error()})
		return false
	}

	if err := utils.ValidateStruct(dst); err != nil {
		logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}
