package handlers

import (
	"context"
	"net/http"

	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/accounts"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountManager administers admin accounts
type AccountManager interface {
	List(ctx context.Context) ([]*models.AdminAccount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error)
	Create(ctx context.Context, actor services.Actor, input accounts.CreateInput) (*models.AdminAccount, error)
	UpdateProfile(ctx context.Context, actor services.Actor, id uuid.UUID, fullName string) (*models.AdminAccount, error)
	UpdateAccess(ctx context.Context, actor services.Actor, id uuid.UUID, role, position string) (*models.AdminAccount, error)
	SetActive(ctx context.Context, actor services.Actor, id uuid.UUID, active bool) (*models.AdminAccount, error)
	ResetPassword(ctx context.Context, actor services.Actor, id uuid.UUID, password string) error
}

// UpdateProfileRequest represents a profile edit
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"max=200"`
}

// UpdateAccessRequest represents a role and position change
type UpdateAccessRequest struct {
	Role     string `json:"role" validate:"required,max=50"`
	Position string `json:"position" validate:"max=100"`
}

// SetActiveRequest activates or deactivates an account
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ResetPasswordRequest sets a new password
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,max=72"`
}

// AccountHandler handles admin account HTTP requests
type AccountHandler struct {
	accounts AccountManager
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts AccountManager, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleList handles GET /api/v1/accounts
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]AdminResponse, len(list))
	for i, a := range list {
		responses[i] = adminToResponse(a)
	}
	_ = utils.WriteOK(w, map[string]interface{}{"accounts": responses})
}

// HandleGet handles GET /api/v1/accounts/{id}
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, adminToResponse(account))
}

// HandleCreate handles POST /api/v1/accounts
func (h *AccountHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req accounts.CreateInput
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	account, err := h.accounts.Create(mutationContext(r), actor, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("account created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("username", account.Username))

	_ = utils.WriteCreated(w, adminToResponse(account))
}

// HandleUpdateProfile handles PATCH /api/v1/accounts/{id}
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	account, err := h.accounts.UpdateProfile(mutationContext(r), actor, id, req.FullName)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, adminToResponse(account))
}

// HandleUpdateAccess handles PUT /api/v1/accounts/{id}/access
func (h *AccountHandler) HandleUpdateAccess(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateAccessRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	account, err := h.accounts.UpdateAccess(mutationContext(r), actor, id, req.Role, req.Position)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, adminToResponse(account))
}

// HandleSetActive handles PUT /api/v1/accounts/{id}/active
func (h *AccountHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	account, err := h.accounts.SetActive(mutationContext(r), actor, id, *req.Active)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, adminToResponse(account))
}

// HandleResetPassword handles PUT /api/v1/accounts/{id}/password
func (h *AccountHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if err := h.accounts.ResetPassword(mutationContext(r), actor, id, req.Password); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
