package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/google/uuid"
)

// RoleSource is the read side of the role registry.
type RoleSource interface {
	FindByName(ctx context.Context, name string) (*model.Role, error)
	ListPermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error)
}

// PreferenceSource looks up per-user overrides. Find returns nil, nil when
// the user has none.
type PreferenceSource interface {
	Find(ctx context.Context, userID uuid.UUID) (*model.UserPreference, error)
}

// Identity is a verified user with role names in assignment order.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

// Resolver turns an identity into Claims.
type Resolver struct {
	roles RoleSource
	prefs PreferenceSource
}

// NewResolver returns a Resolver. prefs may be nil.
func NewResolver(roles RoleSource, prefs PreferenceSource) *Resolver {
	return &Resolver{roles: roles, prefs: prefs}
}

// Resolve computes the claims for id. A store failure is returned as is;
// callers must treat it as a failed authentication.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (Claims, error) {
	if len(id.Roles) == 0 {
		return emptyClaims(), nil
	}
	if HasAdminRole(id.Roles) {
		return administratorClaims(), nil
	}

	effective, err := r.effectiveRoles(ctx, id.Roles)
	if err != nil {
		return Claims{}, err
	}
	if len(effective) == 0 {
		return emptyClaims(), nil
	}

	claims := primaryRoleGrants(effective[0])

	perms, err := r.unionPermissions(ctx, effective)
	if err != nil {
		return Claims{}, err
	}
	claims.permissions = perms

	landing, err := r.preferredLanding(ctx, id.UserID)
	if err != nil {
		return Claims{}, err
	}
	if landing != "" {
		claims.defaultLandingPage = landing
	}

	return claims, nil
}

// effectiveRoles loads the assigned roles in order, skipping names with no
// row and inactive roles.
func (r *Resolver) effectiveRoles(ctx context.Context, names []string) ([]*model.Role, error) {
	roles := make([]*model.Role, 0, len(names))
	seen := make(map[uuid.UUID]bool, len(names))
	for _, name := range names {
		role, err := r.roles.FindByName(ctx, name)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading role %q: %w", name, err)
		}
		if !role.IsActive || seen[role.ID] {
			continue
		}
		seen[role.ID] = true
		roles = append(roles, role)
	}
	return roles, nil
}

// primaryRoleGrants takes navigation grants from a single role. Grants of
// other assigned roles are ignored.
func primaryRoleGrants(primary *model.Role) Claims {
	pages := make([]string, len(primary.AllowedPages))
	copy(pages, primary.AllowedPages)

	landing := primary.DefaultLandingPage
	if landing == "" {
		landing = DefaultLandingPage
	}

	return Claims{
		role:               primary.Name,
		allowedPages:       pages,
		defaultLandingPage: landing,
	}
}

// unionPermissions merges the permission sets of every effective role.
func (r *Resolver) unionPermissions(ctx context.Context, roles []*model.Role) ([]model.Permission, error) {
	var all []model.Permission
	for _, role := range roles {
		perms, err := r.roles.ListPermissionsForRole(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("loading permissions of role %q: %w", role.Name, err)
		}
		all = append(all, perms...)
	}
	return canonicalPermissions(all), nil
}

func (r *Resolver) preferredLanding(ctx context.Context, userID uuid.UUID) (string, error) {
	if r.prefs == nil {
		return "", nil
	}
	pref, err := r.prefs.Find(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading preferences: %w", err)
	}
	if pref == nil || pref.DefaultLandingPage == nil {
		return "", nil
	}
	return *pref.DefaultLandingPage, nil
}
