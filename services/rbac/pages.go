package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/services/activity"
	"go.uber.org/zap"
)

// PageService manages the page catalog
type PageService struct {
	pages       repositories.PageRepository
	txManager   repositories.TransactionManager
	resolver    *Resolver
	invalidator *Invalidator
	activity    ActivityRecorder
	pageKey     string
	logger      *zap.Logger
}

// NewPageService creates a page catalog service. Upserts require pageKey.
func NewPageService(
	repos *repositories.Repositories,
	txManager repositories.TransactionManager,
	resolver *Resolver,
	invalidator *Invalidator,
	activity ActivityRecorder,
	pageKey string,
	logger *zap.Logger,
) *PageService {
	return &PageService{
		pages:       repos.Pages,
		txManager:   txManager,
		resolver:    resolver,
		invalidator: invalidator,
		activity:    recorderOrNop(activity),
		pageKey:     pageKey,
		logger:      logger,
	}
}

// List returns the catalog ordered by group, sort order and key
func (s *PageService) List(ctx context.Context) ([]*models.Page, error) {
	pages, err := s.pages.List(ctx)
	if err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}
	return pages, nil
}

// Upsert creates or updates a catalog page
func (s *PageService) Upsert(ctx context.Context, actor services.Actor, page *models.Page) (*models.Page, error) {
	if page == nil {
		return nil, services.ErrInvalidInput.WithMessage("page is required")
	}
	if err := page.Validate(); err != nil {
		return nil, services.ErrInvalidInput.WithMessage("%s", err.Error())
	}

	if err := s.resolver.Authorize(ctx, actor, s.pageKey); err != nil {
		return nil, err
	}

	action := models.ActivityActionUpdate
	existing, err := s.pages.GetByKey(ctx, page.Key)
	switch {
	case err == nil:
		page.CreatedAt = existing.CreatedAt
	case errors.Is(err, repositories.ErrNotFound):
		action = models.ActivityActionCreate
		page.CreatedAt = time.Now()
	default:
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}
	page.UpdatedAt = time.Now()

	if err := s.pages.Upsert(ctx, page); err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	// A path change moves every admin holding the key
	s.invalidator.InvalidateAll(ctx)

	entry := activity.Entry(actor, action, EntityPage).
		Entity(page.Key).
		Details(fmt.Sprintf("Saved page %s (%s)", page.Key, page.Path)).
		Page(s.pageKey)
	if existing != nil {
		entry.Change(existing.Path, page.Path)
	}
	s.activity.Record(entry.Build())

	return page, nil
}

// Seed upserts pages in one transaction without recording activity
func (s *PageService) Seed(ctx context.Context, pages []*models.Page) error {
	for _, p := range pages {
		if err := p.Validate(); err != nil {
			return services.ErrInvalidInput.WithMessage("%s", err.Error())
		}
	}

	err := services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		for _, p := range pages {
			if err := s.pages.Upsert(ctx, p); err != nil {
				return fmt.Errorf("page %s: %w", p.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidator.InvalidateAll(ctx)
	s.logger.Info("Page catalog seeded", zap.Int("pages", len(pages)))
	return nil
}
