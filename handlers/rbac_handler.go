package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/rbac"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PermissionResolver resolves and authorizes page grants
type PermissionResolver interface {
	PathResolver
	Authorize(ctx context.Context, actor services.Actor, pageKey string) error
}

// RouteGuard decides whether a dashboard route may be entered
type RouteGuard interface {
	Check(ctx context.Context, adminID uuid.UUID, path string) rbac.GuardDecision
}

// PositionManager administers positions and their page grants
type PositionManager interface {
	List(ctx context.Context) ([]*models.Position, error)
	Create(ctx context.Context, actor services.Actor, name, description string) (*models.Position, error)
	Update(ctx context.Context, actor services.Actor, name string, input rbac.UpdatePositionInput) (*models.Position, error)
	Delete(ctx context.Context, actor services.Actor, name string) error
	SetPages(ctx context.Context, actor services.Actor, name string, pageKeys []string) (*models.Position, error)
}

// OverrideManager administers per-admin override grants
type OverrideManager interface {
	Get(ctx context.Context, adminID uuid.UUID) ([]string, error)
	Set(ctx context.Context, actor services.Actor, adminID uuid.UUID, pageKeys []string) ([]string, error)
	View(ctx context.Context, adminID uuid.UUID) (*rbac.OverrideView, error)
}

// PageCatalog lists and edits the page catalog
type PageCatalog interface {
	List(ctx context.Context) ([]*models.Page, error)
	Upsert(ctx context.Context, actor services.Actor, page *models.Page) (*models.Page, error)
}

// CreatePositionRequest represents a request to create a position
type CreatePositionRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdatePositionRequest represents a rename or re-description
type UpdatePositionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// PageKeysRequest replaces a grant set
type PageKeysRequest struct {
	PageKeys []string `json:"pageKeys" validate:"dive,required,max=100"`
}

// UpsertPageRequest represents a page catalog entry
type UpsertPageRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Path      string `json:"path" validate:"required,startswith=/"`
	Group     string `json:"group" validate:"max=50"`
	SortOrder int    `json:"sort_order"`
}

// RBACHandler exposes the permission resolver and its administration
type RBACHandler struct {
	resolver         PermissionResolver
	guard            RouteGuard
	positions        PositionManager
	overrides        OverrideManager
	pages            PageCatalog
	overridesPageKey string
	logger           *zap.Logger
}

// NewRBACHandler creates a new RBACHandler. overridesPageKey is the page
// required to inspect another admin's grants.
func NewRBACHandler(
	resolver PermissionResolver,
	guard RouteGuard,
	positions PositionManager,
	overrides OverrideManager,
	pages PageCatalog,
	overridesPageKey string,
	logger *zap.Logger,
) *RBACHandler {
	return &RBACHandler{
		resolver:         resolver,
		guard:            guard,
		positions:        positions,
		overrides:        overrides,
		pages:            pages,
		overridesPageKey: overridesPageKey,
		logger:           logger,
	}
}

// HandleAllowedPages handles GET /api/v1/rbac/allowed-pages
func (h *RBACHandler) HandleAllowedPages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	target := actor.ID
	if raw := r.URL.Query().Get("adminId"); raw != "" {
		id, err := utils.ParseUUID(raw, "adminId")
		if err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		target = id
	}

	if target != actor.ID {
		if err := h.resolver.Authorize(ctx, actor, h.overridesPageKey); err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
	}

	paths := h.resolver.ResolveAllowedPaths(ctx, target)
	_ = utils.WriteOK(w, map[string]interface{}{"allowedPaths": paths.List()})
}

// HandleCheck handles GET /api/v1/rbac/check?path=
func (h *RBACHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		_ = utils.WriteBadRequest(w, "path is required", nil)
		return
	}

	_ = utils.WriteOK(w, h.guard.Check(r.Context(), actor.ID, path))
}

// HandleListPages handles GET /api/v1/rbac/pages
func (h *RBACHandler) HandleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pages.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"pages": pages})
}

// HandleUpsertPage handles PUT /api/v1/rbac/pages/{key}
func (h *RBACHandler) HandleUpsertPage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req UpsertPageRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	page := models.NewPage(pathParam(r, "key"), req.Name, req.Path, req.Group)
	page.SortOrder = req.SortOrder

	saved, err := h.pages.Upsert(mutationContext(r), actor, page)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, saved)
}

// HandleListPositions handles GET /api/v1/rbac/positions
func (h *RBACHandler) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"positions": positions})
}

// HandleCreatePosition handles POST /api/v1/rbac/positions
func (h *RBACHandler) HandleCreatePosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req CreatePositionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	position, err := h.positions.Create(mutationContext(r), actor, req.Name, req.Description)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("position created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("position", position.Name))

	_ = utils.WriteCreated(w, position)
}

// HandleUpdatePosition handles PATCH /api/v1/rbac/positions/{name}
func (h *RBACHandler) HandleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req UpdatePositionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	position, err := h.positions.Update(mutationContext(r), actor, pathParam(r, "name"), rbac.UpdatePositionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, position)
}

// HandleDeletePosition handles DELETE /api/v1/rbac/positions?name=
func (h *RBACHandler) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		_ = utils.WriteBadRequest(w, "name is required", nil)
		return
	}

	if err := h.positions.Delete(mutationContext(r), actor, name); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("position deleted",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("position", name))

	utils.WriteNoContent(w)
}

// HandleSetPositionPages handles PUT /api/v1/rbac/positions/{name}/pages
func (h *RBACHandler) HandleSetPositionPages(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req PageKeysRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	position, err := h.positions.SetPages(mutationContext(r), actor, pathParam(r, "name"), req.PageKeys)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, position)
}

// HandleGetOverrides handles GET /api/v1/rbac/admins/{id}/page-overrides
func (h *RBACHandler) HandleGetOverrides(w http.ResponseWriter, r *http.Request) {
	adminID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	keys, err := h.overrides.Get(r.Context(), adminID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"pageKeys": keys})
}

// HandleSetOverrides handles PUT /api/v1/rbac/admins/{id}/page-overrides
func (h *RBACHandler) HandleSetOverrides(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	adminID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req PageKeysRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	keys, err := h.overrides.Set(mutationContext(r), actor, adminID, req.PageKeys)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"pageKeys": keys})
}

// HandlePageAccess handles GET /api/v1/rbac/admins/{id}/page-access
func (h *RBACHandler) HandlePageAccess(w http.ResponseWriter, r *http.Request) {
	adminID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	view, err := h.overrides.View(r.Context(), adminID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, view)
}
