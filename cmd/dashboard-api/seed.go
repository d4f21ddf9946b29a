package main

import (
	"context"
	"fmt"

	"github.com/glassline/admin-dashboard/app"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services/rbac"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedOptions struct {
	SkipAdmin bool
}

func seedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:          "seed",
		SilenceUsage: true,
		Short:        "Load the default page catalog, positions and superadmin account",
		Long: `seed upserts the default page catalog, creates the default positions that do not exist yet
and, unless --skip-admin is given, creates the bootstrap superadmin from
BOOTSTRAP_ADMIN_USERNAME / BOOTSTRAP_ADMIN_PASSWORD. Running it twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&opts.SkipAdmin, "skip-admin", false, "do not create the bootstrap superadmin")
	return cmd
}

func runSeed(ctx context.Context, opts seedOptions) error {
	cfg, logger, err := loadRuntime(ctx)
	if err != nil {
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	if err := deps.Pages.Seed(ctx, rbac.DefaultPages(cfg.RBAC.DashboardRoot)); err != nil {
		return fmt.Errorf("failed to seed pages: %w", err)
	}

	var superadminPosition string
	for _, p := range rbac.DefaultPositions() {
		created, err := deps.Positions.Seed(ctx, p.Name, p.Description, p.PageKeys)
		if err != nil {
			return fmt.Errorf("failed to seed position %q: %w", p.Name, err)
		}
		logger.Info("seeded position", zap.String("position", p.Name), zap.Bool("created", created))
		if superadminPosition == "" && models.IsSuperadminName(p.Name) {
			superadminPosition = p.Name
		}
	}

	if opts.SkipAdmin {
		return nil
	}
	if cfg.Bootstrap.Password == "" {
		logger.Warn("BOOTSTRAP_ADMIN_PASSWORD not set, skipping superadmin account")
		return nil
	}

	created, err := deps.Accounts.Bootstrap(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password, superadminPosition)
	if err != nil {
		return fmt.Errorf("failed to create superadmin: %w", err)
	}
	logger.Info("bootstrap superadmin",
		zap.String("username", cfg.Bootstrap.Username),
		zap.Bool("created", created))
	return nil
}
