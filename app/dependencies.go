package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glassline/admin-dashboard/auth"
	"github.com/glassline/admin-dashboard/config"
	"github.com/glassline/admin-dashboard/handlers"
	"github.com/glassline/admin-dashboard/internal/realtime"
	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/repositories/postgres"
	"github.com/glassline/admin-dashboard/services/accounts"
	"github.com/glassline/admin-dashboard/services/activity"
	"github.com/glassline/admin-dashboard/services/ratelimit"
	"github.com/glassline/admin-dashboard/services/rbac"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Realtime channels (Redis when configured, in-process otherwise)
	Hub   realtime.Hub
	Redis *redis.Client

	// Permissions
	PermissionCache *rbac.PermissionCache
	Invalidator     *rbac.Invalidator
	Resolver        *rbac.Resolver
	Guard           *rbac.Guard
	Positions       *rbac.PositionService
	Overrides       *rbac.OverrideService
	Pages           *rbac.PageService

	// Accounts and activity
	Activity *activity.Service
	Accounts *accounts.Service

	// Auth
	Tokens         *auth.TokenManager
	Hasher         *auth.BcryptHasher
	LoginLimiter   *ratelimit.LoginLimiter
	AuthMiddleware *middleware.AuthMiddleware
	PageMiddleware *middleware.PageMiddleware

	// HTTP handlers
	AuthHandler     *handlers.AuthHandler
	RBACHandler     *handlers.RBACHandler
	AccountHandler  *handlers.AccountHandler
	ActivityHandler *handlers.ActivityHandler
	HealthHandler   *handlers.HealthHandler

	cancel    context.CancelFunc
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDependencies connects to PostgreSQL (and Redis when configured) and
// wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := newDependencies(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromDB wires dependencies around an existing connection pool
func NewDependenciesFromDB(ctx context.Context, cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	return newDependencies(ctx, cfg, postgres.NewRepositoryFactoryFromDB(db, logger), logger)
}

func newDependencies(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
		stopCh:      make(chan struct{}),
	}

	deps.initRepositories()

	if err := deps.initRealtime(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize realtime channels: %w", err)
	}

	deps.initServices(cfg)
	deps.initAuth(cfg)
	deps.initHandlers(cfg)

	if err := deps.start(ctx, cfg); err != nil {
		_ = deps.Hub.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initRealtime(cfg *config.Config) error {
	if !cfg.Redis.Enabled() {
		d.Hub = realtime.NewLocalHub()
		d.Logger.Info("redis not configured, using in-process realtime hub")
		return nil
	}

	client, err := realtime.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	d.Redis = client
	d.Hub = realtime.NewRedisHub(client, cfg.Redis.ChannelPrefix, d.Logger)
	d.Logger.Info("realtime hub connected to redis", zap.String("addr", cfg.Redis.Addr))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Activity = activity.NewService(d.Repos.ActivityLogs, d.Hub, d.Logger, activity.Config{
		BufferSize:  cfg.Activity.BufferSize,
		WorkerCount: cfg.Activity.Workers,
	})

	d.PermissionCache = rbac.NewPermissionCache(cfg.RBAC.CacheSize, cfg.RBAC.CacheTTL)
	d.Invalidator = rbac.NewInvalidator(d.PermissionCache, d.Hub, d.Logger)
	d.Resolver = rbac.NewResolver(d.Repos, rbac.ResolverConfig{
		DashboardRoot:    cfg.RBAC.DashboardRoot,
		UnauthorizedPath: cfg.RBAC.UnauthorizedPath,
	}, d.PermissionCache, d.Logger)
	d.Guard = rbac.NewGuard(d.Resolver)

	d.Positions = rbac.NewPositionService(d.Repos, d.TxManager, d.Resolver, d.Invalidator, d.Activity, cfg.RBAC.PositionsPageKey, d.Logger)
	d.Overrides = rbac.NewOverrideService(d.Repos, d.Resolver, d.Invalidator, d.Activity, cfg.RBAC.OverridesPageKey, d.Logger)
	d.Pages = rbac.NewPageService(d.Repos, d.TxManager, d.Resolver, d.Invalidator, d.Activity, cfg.RBAC.PositionsPageKey, d.Logger)

	d.Hasher = auth.NewBcryptHasher(cfg.Session.BcryptCost)
	d.Accounts = accounts.NewService(d.Repos.AdminAccounts, d.Hasher, d.Resolver, d.Invalidator, d.Activity, cfg.RBAC.AccountsPageKey, d.Logger)

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Tokens = auth.NewTokenManager(cfg.Session)
	d.LoginLimiter = ratelimit.NewLoginLimiter(d.DB.DB, cfg.Session.LoginMaxAttempts, cfg.Session.LoginWindow, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, d.Repos.AdminAccounts, cfg.Session.CookieName, d.Logger)
	d.PageMiddleware = middleware.NewPageMiddleware(d.Resolver, d.Logger)
}

func (d *Dependencies) initHandlers(cfg *config.Config) {
	secureCookie := cfg.IsProduction() || cfg.Server.TLS.Enabled

	d.AuthHandler = handlers.NewAuthHandler(d.Accounts, d.Tokens, d.Resolver, cfg.Session.CookieName, secureCookie, d.Logger).
		WithLoginThrottle(d.LoginLimiter)
	d.RBACHandler = handlers.NewRBACHandler(d.Resolver, d.Guard, d.Positions, d.Overrides, d.Pages, cfg.RBAC.OverridesPageKey, d.Logger)
	d.AccountHandler = handlers.NewAccountHandler(d.Accounts, d.Logger)
	d.ActivityHandler = handlers.NewActivityHandler(d.Activity, d.Hub, d.Logger)

	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)
	if d.Redis != nil {
		client := d.Redis
		d.HealthHandler.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
}

// start launches the background workers: activity writers, cache and login
// attempt cleanup, and the cross-instance invalidation listener.
func (d *Dependencies) start(ctx context.Context, cfg *config.Config) error {
	if err := d.Activity.Start(); err != nil {
		return fmt.Errorf("failed to start activity service: %w", err)
	}

	// Workers outlive the construction context
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel

	if d.PermissionCache.Enabled() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.PermissionCache.StartCleanupWorker(cfg.RBAC.CacheTTL, d.stopCh)
		}()
	}

	if d.LoginLimiter.Enabled() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.LoginLimiter.StartCleanupWorker(runCtx, cfg.Session.LoginWindow)
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Invalidator.Run(runCtx, d.Hub)
	}()

	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	d.closeOnce.Do(func() {
		d.Logger.Info("shutting down dependencies")

		if d.cancel != nil {
			d.cancel()
		}
		close(d.stopCh)
		d.wg.Wait()

		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if d.Activity != nil {
			if err := d.Activity.Stop(timeout); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop activity service: %w", err))
			}
		}

		if d.Hub != nil {
			if err := d.Hub.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close realtime hub: %w", err))
			}
		}

		// Close database connection
		if d.RepoFactory != nil {
			if err := d.RepoFactory.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close database: %w", err))
			} else {
				d.Logger.Info("database connection closed")
			}
		}

		_ = d.Logger.Sync()
	})

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}
	return nil
}
