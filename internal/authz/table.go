package authz

import (
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
)

const (
	// AdminRoleName is the administrator role. Holding it bypasses the
	// stored role row entirely.
	AdminRoleName = "ADMIN"

	// WildcardPage in an allow-list grants every destination.
	WildcardPage = "*"

	// DefaultLandingPage is where identities land when nothing else applies.
	DefaultLandingPage = "/homepage"
)

// adminAllowedPages is the hard-coded administrator allow-list. The stored
// ADMIN row is never consulted for navigation.
var adminAllowedPages = []string{
	WildcardPage,
	"/homepage",
	"/dashboard",
	"/dashboard/auta",
	"/dashboard/opravy",
	"/dashboard/tankovani",
	"/dashboard/transakce",
	"/dashboard/reporty",
	"/dashboard/rozvoz",
	"/dashboard/ridic",
	"/dashboard/admin",
}

// AdminAllowedPages returns a copy of the administrator allow-list.
func AdminAllowedPages() []string {
	out := make([]string, len(adminAllowedPages))
	copy(out, adminAllowedPages)
	return out
}

// IsAdminRole reports whether name is the administrator role.
func IsAdminRole(name string) bool {
	return name == AdminRoleName
}

// HasAdminRole reports whether any of names is the administrator role.
func HasAdminRole(names []string) bool {
	for _, n := range names {
		if IsAdminRole(n) {
			return true
		}
	}
	return false
}

// ValidatePermissionKeys splits keys into known permissions (deduplicated,
// first occurrence wins) and unknown keys.
func ValidatePermissionKeys(keys []string) (valid []model.Permission, invalid []string) {
	seen := make(map[model.Permission]bool, len(keys))
	valid = make([]model.Permission, 0, len(keys))
	for _, k := range keys {
		p, ok := model.ParsePermission(k)
		if !ok {
			invalid = append(invalid, k)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		valid = append(valid, p)
	}
	return valid, invalid
}
