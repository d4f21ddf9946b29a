package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/glassline/admin-dashboard/auth"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating session tokens
type TokenValidator interface {
	// ValidateToken validates a session token and returns its claims
	ValidateToken(token string) (*auth.Claims, error)
}

// AccountLookup loads the account a session belongs to
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator  TokenValidator
	accounts   AccountLookup
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. cookieName is the session
// cookie consulted when no Authorization header is sent.
func NewAuthMiddleware(validator TokenValidator, accounts AccountLookup, cookieName string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator:  validator,
		accounts:   accounts,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireAuth is a middleware that requires a valid session token. The
// account is reloaded on every request so deactivation takes effect
// immediately.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r, m.cookieName)
		if token == "" {
			m.logger.Debug("missing session token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.logger.Warn("session validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired session")
			return
		}

		account, err := m.accounts.GetByID(ctx, claims.AdminID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				m.logger.Warn("session for unknown account",
					zap.String("request_id", requestID),
					zap.String("admin_id", claims.AdminID.String()))
				_ = utils.WriteUnauthorized(w, "Invalid or expired session")
				return
			}
			m.logger.Error("failed to load session account",
				zap.String("request_id", requestID),
				zap.String("admin_id", claims.AdminID.String()),
				zap.Error(err))
			_ = utils.WriteServiceUnavailable(w, "")
			return
		}

		if !account.IsActive {
			m.logger.Info("session for inactive account",
				zap.String("request_id", requestID),
				zap.String("username", account.Username))
			_ = utils.WriteUnauthorized(w, "Account is deactivated")
			return
		}

		ctx = WithSession(ctx, claims)
		ctx = WithAccount(ctx, account)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("admin_id", account.ID.String()),
			zap.String("username", account.Username))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the session token from the Authorization header
// ("Bearer TOKEN") or the session cookie. The header takes precedence.
func extractToken(r *http.Request, cookieName string) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
