package rbac

import (
	"context"
	"strings"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
)

// validatePageKeys normalizes keys and rejects any that are not in the catalog
func validatePageKeys(ctx context.Context, pages repositories.PageRepository, keys []string) ([]string, error) {
	keys = models.NormalizePageKeys(keys)
	if len(keys) == 0 {
		return keys, nil
	}

	catalog, err := pages.List(ctx)
	if err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}

	if unknown := models.NewPageIndex(catalog).Unknown(keys); len(unknown) > 0 {
		return nil, services.ErrUnknownPageKeys.
			WithMessage("unknown page keys: %s", strings.Join(unknown, ", ")).
			WithDetail("unknown", unknown)
	}
	return keys, nil
}
