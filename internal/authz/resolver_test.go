package authz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoles struct {
	byName map[string]*model.Role
	perms  map[uuid.UUID][]model.Permission
	calls  int
	err    error
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		byName: map[string]*model.Role{},
		perms:  map[uuid.UUID][]model.Permission{},
	}
}

func (f *fakeRoles) add(name string, pages []string, landing string, perms ...model.Permission) *model.Role {
	role := &model.Role{
		ID:                 uuid.New(),
		Name:               name,
		IsActive:           true,
		AllowedPages:       pages,
		DefaultLandingPage: landing,
	}
	f.byName[name] = role
	f.perms[role.ID] = perms
	return role
}

func (f *fakeRoles) FindByName(_ context.Context, name string) (*model.Role, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	role, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("role %q: %w", name, apperr.ErrNotFound)
	}
	return role, nil
}

func (f *fakeRoles) ListPermissionsForRole(_ context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	f.calls++
	return f.perms[roleID], nil
}

type fakePrefs struct {
	pref *model.UserPreference
	err  error
}

func (f *fakePrefs) Find(_ context.Context, _ uuid.UUID) (*model.UserPreference, error) {
	return f.pref, f.err
}

func TestResolver_PermissionUnion(t *testing.T) {
	roles := newFakeRoles()
	roles.add("R1", []string{"/a"}, "/a", model.PermViewDashboard)
	roles.add("R2", []string{"/b"}, "/b", model.PermManageUsers)

	claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
		UserID: uuid.New(),
		Roles:  []string{"R1", "R2"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []model.Permission{model.PermViewDashboard, model.PermManageUsers}, claims.Permissions())
}

func TestResolver_PrimaryRolePageGrant(t *testing.T) {
	roles := newFakeRoles()
	roles.add("R1", []string{"/a"}, "/a", model.PermViewDashboard)
	roles.add("R2", []string{"/b"}, "/b", model.PermManageUsers)

	claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
		UserID: uuid.New(),
		Roles:  []string{"R1", "R2"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/a"}, claims.AllowedPages())
	assert.Equal(t, "/a", claims.DefaultLandingPage())
	assert.Equal(t, "R1", claims.Role())

	t.Run("order decides the primary role", func(t *testing.T) {
		claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{"R2", "R1"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"/b"}, claims.AllowedPages())
		assert.Equal(t, "R2", claims.Role())
	})
}

func TestResolver_AdministratorOverride(t *testing.T) {
	t.Run("missing registry row", func(t *testing.T) {
		roles := newFakeRoles()

		claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{AdminRoleName},
		})
		require.NoError(t, err)

		assert.Equal(t, model.AllPermissions(), claims.Permissions())
		assert.Contains(t, claims.AllowedPages(), WildcardPage)
		assert.Equal(t, DefaultLandingPage, claims.DefaultLandingPage())
		assert.Zero(t, roles.calls, "administrator resolution must not read the registry")
	})

	t.Run("empty registry row", func(t *testing.T) {
		roles := newFakeRoles()
		roles.add(AdminRoleName, nil, "")

		claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{AdminRoleName},
		})
		require.NoError(t, err)
		assert.Equal(t, model.AllPermissions(), claims.Permissions())
	})

	t.Run("admin among other roles", func(t *testing.T) {
		roles := newFakeRoles()
		roles.add("DISPECER", []string{"/dashboard/auta"}, "/dashboard/auta", model.PermManageVehicles)

		claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{"DISPECER", AdminRoleName},
		})
		require.NoError(t, err)
		assert.Equal(t, AdminRoleName, claims.Role())
		assert.True(t, claims.CanNavigate("/dashboard/admin/users"))
	})
}

func TestResolver_NoRolesFailsClosed(t *testing.T) {
	claims, err := NewResolver(newFakeRoles(), nil).Resolve(context.Background(), Identity{UserID: uuid.New()})
	require.NoError(t, err)

	assert.Empty(t, claims.Permissions())
	assert.Equal(t, []string{}, claims.AllowedPages())
	assert.Equal(t, DefaultLandingPage, claims.DefaultLandingPage())
	assert.True(t, claims.IsEmpty())
	assert.False(t, claims.CanNavigate(DefaultLandingPage))
}

func TestResolver_SkipsMissingAndInactiveRoles(t *testing.T) {
	roles := newFakeRoles()
	inactive := roles.add("STARY", []string{"/old"}, "/old", model.PermManageUsers)
	inactive.IsActive = false
	roles.add("RIDIC", []string{"/dashboard/ridic"}, "/dashboard/ridic", model.PermDriverAccess)

	claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
		UserID: uuid.New(),
		Roles:  []string{"SMAZANA", "STARY", "RIDIC"},
	})
	require.NoError(t, err)

	assert.Equal(t, "RIDIC", claims.Role())
	assert.Equal(t, []model.Permission{model.PermDriverAccess}, claims.Permissions())
	assert.Equal(t, []string{"/dashboard/ridic"}, claims.AllowedPages())

	t.Run("nothing effective", func(t *testing.T) {
		claims, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{"SMAZANA", "STARY"},
		})
		require.NoError(t, err)
		assert.True(t, claims.IsEmpty())
	})
}

func TestResolver_PreferenceOverridesLanding(t *testing.T) {
	roles := newFakeRoles()
	roles.add("UCETNI", []string{"/homepage", "/dashboard/reporty"}, "/homepage", model.PermViewReports)

	landing := "/dashboard/reporty"
	prefs := &fakePrefs{pref: &model.UserPreference{DefaultLandingPage: &landing}}

	claims, err := NewResolver(roles, prefs).Resolve(context.Background(), Identity{
		UserID: uuid.New(),
		Roles:  []string{"UCETNI"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/dashboard/reporty", claims.DefaultLandingPage())

	t.Run("preference without landing keeps role default", func(t *testing.T) {
		prefs := &fakePrefs{pref: &model.UserPreference{Theme: "dark"}}
		claims, err := NewResolver(roles, prefs).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{"UCETNI"},
		})
		require.NoError(t, err)
		assert.Equal(t, "/homepage", claims.DefaultLandingPage())
	})
}

func TestResolver_StoreFailureAborts(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("role lookup", func(t *testing.T) {
		roles := newFakeRoles()
		roles.err = boom

		_, err := NewResolver(roles, nil).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{"DISPECER"},
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("preference lookup", func(t *testing.T) {
		roles := newFakeRoles()
		roles.add("DISPECER", []string{"/dashboard/auta"}, "/dashboard/auta", model.PermManageVehicles)

		_, err := NewResolver(roles, &fakePrefs{err: boom}).Resolve(context.Background(), Identity{
			UserID: uuid.New(),
			Roles:  []string{"DISPECER"},
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestDispatcherScenario(t *testing.T) {
	roles := newFakeRoles()
	roles.add("DISPECER", []string{"/dashboard/auta"}, "/dashboard/auta", model.PermManageVehicles)

	claims, err := NewResolver(roles, &fakePrefs{}).Resolve(context.Background(), Identity{
		UserID: uuid.New(),
		Roles:  []string{"DISPECER"},
	})
	require.NoError(t, err)

	assert.Equal(t, []model.Permission{model.PermManageVehicles}, claims.Permissions())
	assert.Equal(t, []string{"/dashboard/auta"}, claims.AllowedPages())
	assert.Equal(t, "/dashboard/auta", claims.DefaultLandingPage())

	guard := Guard{PublicEntry: "/", Forbidden: "/forbidden"}
	assert.Equal(t, RedirectTo("/forbidden"), guard.Decide("/dashboard/admin/users", &claims))
	assert.True(t, guard.Decide("/dashboard/auta/7", &claims).Allowed())
}
