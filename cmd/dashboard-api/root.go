package main

import (
	"context"
	"fmt"

	"github.com/glassline/admin-dashboard/config"
	"github.com/glassline/admin-dashboard/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dashboard-api",
		Short:        "Admin dashboard backend",
		Long:         `dashboard-api serves the admin dashboard API: sessions, page permissions, positions, admin accounts and the activity log.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(seedCmd())
	cmd.AddCommand(hashPasswordCmd())
	return cmd
}

// loadRuntime reads configuration and builds the logger every command shares
func loadRuntime(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.With(zap.String("environment", cfg.Environment)), nil
}
