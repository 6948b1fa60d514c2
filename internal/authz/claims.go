package authz

import (
	"encoding/json"
	"slices"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
)

// Claims is the authorization snapshot of one identity at resolution time.
// It is not live: it keeps whatever the roles said when it was resolved.
// Only the Resolver and FromSnapshot produce one.
type Claims struct {
	role               string
	permissions        []model.Permission
	allowedPages       []string
	defaultLandingPage string
}

// Snapshot is the flat wire form of Claims carried in the session token.
type Snapshot struct {
	Role               string   `json:"role"`
	Permissions        []string `json:"permissions"`
	AllowedPages       []string `json:"allowedPages"`
	DefaultLandingPage string   `json:"defaultLandingPage"`
}

func emptyClaims() Claims {
	return Claims{
		permissions:        []model.Permission{},
		allowedPages:       []string{},
		defaultLandingPage: DefaultLandingPage,
	}
}

func administratorClaims() Claims {
	return Claims{
		role:               AdminRoleName,
		permissions:        model.AllPermissions(),
		allowedPages:       AdminAllowedPages(),
		defaultLandingPage: DefaultLandingPage,
	}
}

// Role is the primary role name, empty when the identity has none.
func (c Claims) Role() string { return c.role }

// Permissions returns the permission set in canonical order.
func (c Claims) Permissions() []model.Permission {
	return slices.Clone(c.permissions)
}

// AllowedPages returns the navigation allow-list in grant order.
func (c Claims) AllowedPages() []string {
	return slices.Clone(c.allowedPages)
}

// DefaultLandingPage is where the identity lands after login.
func (c Claims) DefaultLandingPage() string { return c.defaultLandingPage }

// Has reports whether p was granted.
func (c Claims) Has(p model.Permission) bool {
	return slices.Contains(c.permissions, p)
}

// HasAll reports whether every permission in ps was granted.
func (c Claims) HasAll(ps ...model.Permission) bool {
	for _, p := range ps {
		if !c.Has(p) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one permission in ps was granted.
func (c Claims) HasAny(ps ...model.Permission) bool {
	return slices.ContainsFunc(ps, c.Has)
}

// CanNavigate reports whether path is covered by the allowed pages.
func (c Claims) CanNavigate(path string) bool {
	return IsAllowed(path, c.allowedPages)
}

// IsEmpty reports whether the claims grant nothing at all.
func (c Claims) IsEmpty() bool {
	return len(c.permissions) == 0 && len(c.allowedPages) == 0
}

// Snapshot converts the claims into their wire form.
func (c Claims) Snapshot() Snapshot {
	perms := make([]string, 0, len(c.permissions))
	for _, p := range c.permissions {
		perms = append(perms, string(p))
	}
	pages := slices.Clone(c.allowedPages)
	if pages == nil {
		pages = []string{}
	}
	return Snapshot{
		Role:               c.role,
		Permissions:        perms,
		AllowedPages:       pages,
		DefaultLandingPage: c.defaultLandingPage,
	}
}

// MarshalJSON encodes the claims as their Snapshot.
func (c Claims) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// FromSnapshot restores claims issued earlier. Unknown permission keys are
// dropped rather than trusted.
func FromSnapshot(s Snapshot) Claims {
	perms, _ := ValidatePermissionKeys(s.Permissions)
	landing := s.DefaultLandingPage
	if landing == "" {
		landing = DefaultLandingPage
	}
	pages := slices.Clone(s.AllowedPages)
	if pages == nil {
		pages = []string{}
	}
	return Claims{
		role:               s.Role,
		permissions:        canonicalPermissions(perms),
		allowedPages:       pages,
		defaultLandingPage: landing,
	}
}

// canonicalPermissions deduplicates and orders permissions by the
// vocabulary order.
func canonicalPermissions(perms []model.Permission) []model.Permission {
	out := make([]model.Permission, 0, len(perms))
	for _, p := range perms {
		if p.IsValid() && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Permission) int {
		return model.PermissionIndex(a) - model.PermissionIndex(b)
	})
	return out
}
