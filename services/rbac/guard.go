package rbac

import (
	"context"
	"strings"

	"github.com/glassline/admin-dashboard/internal/observability"
	"github.com/google/uuid"
)

// GuardDecision is the navigation verdict for one path
type GuardDecision struct {
	Allowed    bool   `json:"allowed"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Guard decides whether an admin may navigate to a dashboard route
type Guard struct {
	resolver *Resolver
}

// NewGuard creates a route guard over a resolver
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Protects reports whether path is inside the dashboard area
func (g *Guard) Protects(path string) bool {
	root := cleanPath(g.resolver.cfg.DashboardRoot)
	path = cleanPath(path)
	return path == root || strings.HasPrefix(path, root+"/")
}

// Check allows paths outside the dashboard area unconditionally and
// redirects disallowed dashboard paths to the unauthorized page.
func (g *Guard) Check(ctx context.Context, adminID uuid.UUID, path string) GuardDecision {
	if !g.Protects(path) {
		observability.GuardDecisions.WithLabelValues("unprotected").Inc()
		return GuardDecision{Allowed: true}
	}

	if g.resolver.ResolveAllowedPaths(ctx, adminID).Allows(path) {
		observability.GuardDecisions.WithLabelValues("allowed").Inc()
		return GuardDecision{Allowed: true}
	}

	observability.GuardDecisions.WithLabelValues("redirected").Inc()
	return GuardDecision{Allowed: false, RedirectTo: g.resolver.cfg.UnauthorizedPath}
}
