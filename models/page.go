package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// pageKeyPattern restricts page keys to lowercase slugs
var pageKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Page represents a protected dashboard navigation target
type Page struct {
	Key       string    `json:"key" db:"key"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"` // Route matched exactly or as a prefix of child routes
	Group     string    `json:"group,omitempty" db:"group_name"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Page model
func (Page) TableName() string {
	return "pages"
}

// NewPage creates a new Page instance
func NewPage(key, name, path, group string) *Page {
	now := time.Now()
	return &Page{
		Key:       strings.TrimSpace(key),
		Name:      strings.TrimSpace(name),
		Path:      strings.TrimSpace(path),
		Group:     strings.TrimSpace(group),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the page key, name and path
func (p *Page) Validate() error {
	if !IsValidPageKey(p.Key) {
		return fmt.Errorf("invalid page key: %q", p.Key)
	}
	if p.Name == "" {
		return fmt.Errorf("page name is required")
	}
	if !strings.HasPrefix(p.Path, "/") {
		return fmt.Errorf("page path must start with '/': %q", p.Path)
	}
	return nil
}

// IsValidPageKey reports whether key is a well-formed page key
func IsValidPageKey(key string) bool {
	return pageKeyPattern.MatchString(key)
}

// PageIndex maps page keys to pages
type PageIndex map[string]*Page

// NewPageIndex builds a key index over pages
func NewPageIndex(pages []*Page) PageIndex {
	idx := make(PageIndex, len(pages))
	for _, p := range pages {
		if p != nil {
			idx[p.Key] = p
		}
	}
	return idx
}

// Unknown returns the keys that have no page in the index
func (idx PageIndex) Unknown(keys []string) []string {
	var unknown []string
	for _, k := range keys {
		if _, ok := idx[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
