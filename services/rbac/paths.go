package rbac

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// WildcardPath is the wire form of the superadmin wildcard
const WildcardPath = "*"

// AllowedPaths is the resolved allow-list for one admin. Page paths also
// allow their child routes; utility paths match exactly. Values are
// immutable once built, so they can be shared through the cache.
type AllowedPaths struct {
	wildcard bool
	pages    map[string]struct{}
	utility  map[string]struct{}
}

// WildcardPaths returns the superadmin allow-list
func WildcardPaths() AllowedPaths {
	return AllowedPaths{wildcard: true}
}

// NewAllowedPaths builds an allow-list from page paths and utility paths
func NewAllowedPaths(pagePaths, utilityPaths []string) AllowedPaths {
	a := AllowedPaths{
		pages:   make(map[string]struct{}, len(pagePaths)),
		utility: make(map[string]struct{}, len(utilityPaths)),
	}
	for _, p := range pagePaths {
		if p = cleanPath(p); p != "" {
			a.pages[p] = struct{}{}
		}
	}
	for _, p := range utilityPaths {
		if p = cleanPath(p); p != "" {
			a.utility[p] = struct{}{}
		}
	}
	return a
}

// IsWildcard reports whether every path is allowed
func (a AllowedPaths) IsWildcard() bool {
	return a.wildcard
}

// Allows reports whether path may be navigated to
func (a AllowedPaths) Allows(path string) bool {
	if a.wildcard {
		return true
	}
	path = cleanPath(path)
	if path == "" {
		return false
	}
	if _, ok := a.utility[path]; ok {
		return true
	}
	if _, ok := a.pages[path]; ok {
		return true
	}
	for p := range a.pages {
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// List returns the sorted allowed paths, or ["*"] for the wildcard
func (a AllowedPaths) List() []string {
	if a.wildcard {
		return []string{WildcardPath}
	}
	out := make([]string, 0, len(a.pages)+len(a.utility))
	for p := range a.utility {
		out = append(out, p)
	}
	for p := range a.pages {
		if _, dup := a.utility[p]; !dup {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// cleanPath drops query and fragment, decodes percent escapes and resolves
// dot segments so the result names the route the router will serve.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
