package middleware

import (
	"context"

	"github.com/glassline/admin-dashboard/auth"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
	"github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions
type contextKey string

const (
	// SessionKey is the context key for validated session claims
	SessionKey contextKey = "session"

	// AccountKey is the context key for the authenticated admin account
	AccountKey contextKey = "account"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// GetSessionFromContext retrieves session claims from context
func GetSessionFromContext(ctx context.Context) *auth.Claims {
	if val := ctx.Value(SessionKey); val != nil {
		if claims, ok := val.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithSession adds session claims to the context
func WithSession(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, SessionKey, claims)
}

// GetAccountFromContext retrieves the authenticated account from context
func GetAccountFromContext(ctx context.Context) *models.AdminAccount {
	if val := ctx.Value(AccountKey); val != nil {
		if account, ok := val.(*models.AdminAccount); ok {
			return account
		}
	}
	return nil
}

// WithAccount adds the authenticated account to the context
func WithAccount(ctx context.Context, account *models.AdminAccount) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

// ActorFromContext returns the acting admin. ok is false when the request
// was not authenticated.
func ActorFromContext(ctx context.Context) (services.Actor, bool) {
	account := GetAccountFromContext(ctx)
	if account == nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: account.ID, Username: account.Username}, true
}
