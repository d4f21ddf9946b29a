package middleware

import (
	"context"
	"net/http"

	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/utils"
	"go.uber.org/zap"
)

// PageAuthorizer checks an actor's effective grants
type PageAuthorizer interface {
	Authorize(ctx context.Context, actor services.Actor, pageKey string) error
	RequireSuperadmin(ctx context.Context, actor services.Actor) error
}

// PageMiddleware gates routes on page grants. It must run after RequireAuth.
type PageMiddleware struct {
	authorizer PageAuthorizer
	logger     *zap.Logger
}

// NewPageMiddleware creates a new PageMiddleware
func NewPageMiddleware(authorizer PageAuthorizer, logger *zap.Logger) *PageMiddleware {
	return &PageMiddleware{
		authorizer: authorizer,
		logger:     logger,
	}
}

// RequirePage allows the request only when the actor holds pageKey
func (m *PageMiddleware) RequirePage(pageKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.guard("page:"+pageKey, func(ctx context.Context, actor services.Actor) error {
			return m.authorizer.Authorize(ctx, actor, pageKey)
		}, next)
	}
}

// RequireSuperadmin allows the request only for superadmins
func (m *PageMiddleware) RequireSuperadmin(next http.Handler) http.Handler {
	return m.guard("superadmin", func(ctx context.Context, actor services.Actor) error {
		return m.authorizer.RequireSuperadmin(ctx, actor)
	}, next)
}

func (m *PageMiddleware) guard(requirement string, check func(context.Context, services.Actor) error, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		actor, ok := ActorFromContext(ctx)
		if !ok {
			m.logger.Error("account not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		err := check(ctx, actor)
		switch {
		case err == nil:
		case services.IsUnavailableError(err):
			m.logger.Error("failed to evaluate grants",
				zap.String("request_id", requestID),
				zap.String("requirement", requirement),
				zap.Error(err))
			_ = utils.WriteServiceUnavailable(w, "")
			return
		case services.IsUnauthorizedError(err):
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		default:
			m.logger.Warn("insufficient permissions",
				zap.String("request_id", requestID),
				zap.String("username", actor.Username),
				zap.String("requirement", requirement))
			_ = utils.WriteForbidden(w, "Insufficient permissions", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
