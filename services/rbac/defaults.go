package rbac

import (
	"github.com/glassline/admin-dashboard/models"
)

// Page groups
const (
	GroupCatalog    = "Catalog"
	GroupSales      = "Sales"
	GroupContent    = "Content"
	GroupInsights   = "Insights"
	GroupManagement = "Management"
)

var defaultCatalog = []struct {
	key, name, group string
}{
	{"products", "Products", GroupCatalog},
	{"categories", "Categories", GroupCatalog},
	{"orders", "Orders", GroupSales},
	{"quotations", "Quotations", GroupSales},
	{"calendar", "Calendar", GroupSales},
	{"inquiries", "Inquiries", GroupSales},
	{"faqs", "FAQs", GroupContent},
	{"gallery", "Gallery", GroupContent},
	{"content", "Site Content", GroupContent},
	{"reports", "Reports", GroupInsights},
	{"notifications", "Notifications", GroupInsights},
	{"accounts", "Admin Accounts", GroupManagement},
	{"positions", "Positions", GroupManagement},
	{"page-access", "Page Access", GroupManagement},
	{"activity-logs", "Activity Logs", GroupManagement},
}

// DefaultPages returns the standard dashboard catalog rooted at root
func DefaultPages(root string) []*models.Page {
	pages := make([]*models.Page, 0, len(defaultCatalog))
	for i, entry := range defaultCatalog {
		p := models.NewPage(entry.key, entry.name, cleanPath(root)+"/"+entry.key, entry.group)
		p.SortOrder = i
		pages = append(pages, p)
	}
	return pages
}

// SeedPosition is a position created by the seed command
type SeedPosition struct {
	Name        string
	Description string
	PageKeys    []string
}

// DefaultPositions returns the positions created on a fresh install
func DefaultPositions() []SeedPosition {
	return []SeedPosition{
		{Name: "Superadmin", Description: "Full access to every page"},
		{
			Name:        "Manager",
			Description: "Runs sales and content",
			PageKeys: []string{
				"products", "categories", "orders", "quotations", "calendar",
				"inquiries", "faqs", "gallery", "content", "reports", "notifications",
			},
		},
		{
			Name:        "Sales Staff",
			Description: "Handles orders and customer inquiries",
			PageKeys:    []string{"orders", "quotations", "calendar", "inquiries"},
		},
		{
			Name:        "Content Editor",
			Description: "Maintains the public site",
			PageKeys:    []string{"faqs", "gallery", "content"},
		},
	}
}
