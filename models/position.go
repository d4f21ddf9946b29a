package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SuperadminName is the normalized name of the reserved full-access position and role
const SuperadminName = "superadmin"

// Position represents a named role template with a default set of page grants
type Position struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	PageKeys    []string  `json:"pageKeys" db:"-"` // Stored in position_pages
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Position model
func (Position) TableName() string {
	return "positions"
}

// NewPosition creates a new Position with an empty grant set
func NewPosition(name, description string) *Position {
	now := time.Now()
	return &Position{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		PageKeys:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NormalizedName returns the comparison form of the position name
func (p *Position) NormalizedName() string {
	return NormalizeName(p.Name)
}

// IsSuperadmin returns true for the reserved Superadmin position
func (p *Position) IsSuperadmin() bool {
	return IsSuperadminName(p.Name)
}

// NormalizeName lowercases s and strips whitespace, hyphens and underscores.
// "Super Admin", "super-admin" and "SUPER_ADMIN" all normalize to "superadmin".
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '-' || r == '_':
			continue
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsSuperadminName reports whether s normalizes to the reserved superadmin name
func IsSuperadminName(s string) bool {
	return NormalizeName(s) == SuperadminName
}

// NormalizePageKeys trims, drops empties, de-duplicates and sorts page keys
func NormalizePageKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnionPageKeys returns the normalized union of the given key sets
func UnionPageKeys(sets ...[]string) []string {
	var all []string
	for _, s := range sets {
		all = append(all, s...)
	}
	return NormalizePageKeys(all)
}
