package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/glassline/admin-dashboard/auth"
	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/ratelimit"
	"github.com/glassline/admin-dashboard/services/rbac"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authenticator checks credentials and records session activity
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.AdminAccount, error)
	RecordLogout(ctx context.Context, actor services.Actor)
}

// SessionIssuer issues signed session tokens
type SessionIssuer interface {
	Issue(adminID uuid.UUID, username string) (string, time.Time, error)
}

// PathResolver computes an admin's allowed dashboard paths
type PathResolver interface {
	ResolveAllowedPaths(ctx context.Context, adminID uuid.UUID) rbac.AllowedPaths
}

// LoginThrottle limits repeated failed logins per username
type LoginThrottle interface {
	Check(ctx context.Context, username string) (*ratelimit.LoginResult, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

// AdminResponse is an admin account as returned by the API
type AdminResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	FullName  string     `json:"full_name"`
	Role      string     `json:"role"`
	Position  string     `json:"position"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Admin     AdminResponse `json:"admin"`
}

// MeResponse describes the current session
type MeResponse struct {
	Admin        AdminResponse `json:"admin"`
	AllowedPaths []string      `json:"allowedPaths"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
}

// AuthHandler handles login, logout and session introspection
type AuthHandler struct {
	accounts     Authenticator
	sessions     SessionIssuer
	paths        PathResolver
	throttle     LoginThrottle
	cookieName   string
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	accounts Authenticator,
	sessions SessionIssuer,
	paths PathResolver,
	cookieName string,
	secureCookie bool,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		sessions:     sessions,
		paths:        paths,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// WithLoginThrottle enables failed-login throttling
func (h *AuthHandler) WithLoginThrottle(throttle LoginThrottle) *AuthHandler {
	h.throttle = throttle
	return h
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req LoginRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if h.throttle != nil {
		result, err := h.throttle.Check(r.Context(), req.Username)
		switch {
		case err != nil:
			// Fail open: an unavailable counter must not lock everyone out
			h.logger.Warn("login throttle check failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		case !result.Allowed:
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Round(time.Second)/time.Second)))
			_ = utils.WriteTooManyRequests(w, "Too many failed login attempts, try again later")
			return
		}
	}

	ctx := mutationContext(r)
	account, err := h.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if h.throttle != nil && errors.Is(err, services.ErrInvalidCredentials) {
			if recErr := h.throttle.RecordFailure(ctx, req.Username); recErr != nil {
				h.logger.Warn("failed to record login attempt",
					zap.String("request_id", requestID),
					zap.Error(recErr))
			}
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	if h.throttle != nil {
		if err := h.throttle.Reset(ctx, req.Username); err != nil {
			h.logger.Warn("failed to reset login attempts",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}

	token, expiresAt, err := h.sessions.Issue(account.ID, account.Username)
	if err != nil {
		h.logger.Error("failed to issue session token",
			zap.String("request_id", requestID),
			zap.String("admin_id", account.ID.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to start session")
		return
	}

	auth.SetSessionCookie(w, h.cookieName, token, expiresAt, h.secureCookie)

	h.logger.Info("admin logged in",
		zap.String("request_id", requestID),
		zap.String("username", account.Username))

	_ = utils.WriteOK(w, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     adminToResponse(account),
	})
}

// HandleLogout handles POST /api/v1/auth/logout. Tokens are stateless, so
// logout clears the cookie and records the event.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	h.accounts.RecordLogout(mutationContext(r), actor)
	auth.ClearSessionCookie(w, h.cookieName, h.secureCookie)

	h.logger.Info("admin logged out",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("username", actor.Username))

	utils.WriteNoContent(w)
}

// HandleMe handles GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccountFromContext(ctx)
	if account == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp := MeResponse{
		Admin:        adminToResponse(account),
		AllowedPaths: h.paths.ResolveAllowedPaths(ctx, account.ID).List(),
	}
	if session := middleware.GetSessionFromContext(ctx); session != nil {
		resp.ExpiresAt = &session.ExpiresAt
	}

	_ = utils.WriteOK(w, resp)
}

// adminToResponse converts an AdminAccount model to an AdminResponse
func adminToResponse(a *models.AdminAccount) AdminResponse {
	return AdminResponse{
		ID:        a.ID,
		Username:  a.Username,
		FullName:  a.FullName,
		Role:      string(a.Role),
		Position:  a.Position,
		IsActive:  a.IsActive,
		LastLogin: a.LastLogin,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}
