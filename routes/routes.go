package routes

import (
	"net/http"

	"github.com/glassline/admin-dashboard/app"
	"github.com/glassline/admin-dashboard/internal/observability"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMetrics)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	authn := deps.AuthMiddleware.RequireAuth
	pages := deps.PageMiddleware
	keys := cfg.RBAC

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Server.RequestTimeout > 0 {
				r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
			}

			// Public routes
			r.Post("/auth/login", deps.AuthHandler.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(authn)

				r.Post("/auth/logout", deps.AuthHandler.HandleLogout)
				r.Get("/auth/me", deps.AuthHandler.HandleMe)

				// Permission resolver and its administration
				r.Route("/rbac", func(r chi.Router) {
					r.Get("/allowed-pages", deps.RBACHandler.HandleAllowedPages)
					r.Get("/check", deps.RBACHandler.HandleCheck)
					r.Get("/pages", deps.RBACHandler.HandleListPages)
					r.Get("/positions", deps.RBACHandler.HandleListPositions)

					r.Group(func(r chi.Router) {
						r.Use(pages.RequirePage(keys.PositionsPageKey))
						r.Put("/pages/{key}", deps.RBACHandler.HandleUpsertPage)
						r.Post("/positions", deps.RBACHandler.HandleCreatePosition)
						r.Delete("/positions", deps.RBACHandler.HandleDeletePosition)
						r.Patch("/positions/{name}", deps.RBACHandler.HandleUpdatePosition)
						r.Put("/positions/{name}/pages", deps.RBACHandler.HandleSetPositionPages)
					})

					r.Route("/admins/{id}", func(r chi.Router) {
						r.Use(pages.RequirePage(keys.OverridesPageKey))
						r.Get("/page-overrides", deps.RBACHandler.HandleGetOverrides)
						r.Put("/page-overrides", deps.RBACHandler.HandleSetOverrides)
						r.Get("/page-access", deps.RBACHandler.HandlePageAccess)
					})
				})

				// Admin accounts
				r.Route("/accounts", func(r chi.Router) {
					r.Use(pages.RequirePage(keys.AccountsPageKey))
					r.Get("/", deps.AccountHandler.HandleList)
					r.Post("/", deps.AccountHandler.HandleCreate)
					r.Get("/{id}", deps.AccountHandler.HandleGet)
					r.Patch("/{id}", deps.AccountHandler.HandleUpdateProfile)

					r.Group(func(r chi.Router) {
						r.Use(pages.RequireSuperadmin)
						r.Put("/{id}/access", deps.AccountHandler.HandleUpdateAccess)
						r.Put("/{id}/active", deps.AccountHandler.HandleSetActive)
						r.Put("/{id}/password", deps.AccountHandler.HandleResetPassword)
					})
				})

				r.With(pages.RequirePage(keys.ActivityPageKey)).
					Get("/activity-logs", deps.ActivityHandler.HandleList)
			})
		})

		// Long-lived stream, outside the request timeout
		r.With(authn, pages.RequirePage(keys.ActivityPageKey)).
			Get("/activity-logs/stream", deps.ActivityHandler.HandleStream)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusMethodNotAllowed, utils.ErrorResponse{
			Error:   "method_not_allowed",
			Message: "method not allowed",
		})
	})

	return r
}
