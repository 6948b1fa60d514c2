package service

import (
	"context"
	"testing"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/config"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const protectedEmail = "admin@dopravni-system.cz"

type userFixture struct {
	svc      UserService
	guard    AdminGuard
	store    *fakeStore
	notifier *recordingNotifier
	admin    *model.Role
	dispecer *model.Role
	ridic    *model.Role
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	roles := fakeRoleRepo{store}
	users := fakeUserRepo{store}
	guard := NewAdminGuard(users, roles, protectedEmail)

	f := &userFixture{
		guard:    guard,
		store:    store,
		notifier: notifier,
		admin:    store.addRole(authz.AdminRoleName, true, nil, nil, "/homepage"),
		dispecer: store.addRole("DISPECER", true, []model.Permission{model.PermManageVehicles}, []string{"/dashboard/auta"}, "/dashboard/auta"),
		ridic:    store.addRole("RIDIC", true, []model.Permission{model.PermDriverAccess}, []string{"/dashboard/ridic"}, "/dashboard/ridic"),
	}
	f.svc = NewUserService(UserServiceDeps{
		Users:    users,
		Roles:    roles,
		Prefs:    fakePrefRepo{store},
		Audit:    fakeAuditRepo{store},
		Tx:       fakeTx{},
		Guard:    guard,
		Resolver: authz.NewResolver(roles, fakePrefRepo{store}),
		Notifier: notifier,
	})
	return f
}

func TestProtectedAdministratorAccount(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	seeded := f.store.addUser(protectedEmail, "heslo12345", true, f.admin)
	other := f.store.addUser("druhy@example.cz", "heslo12345", true, f.admin)

	t.Run("cannot be deleted, even by another administrator", func(t *testing.T) {
		err := f.svc.DeleteUser(ctx, other.ID, seeded.ID.String())
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
		assert.Contains(t, f.store.users, seeded.ID)
	})

	t.Run("cannot be deleted by itself", func(t *testing.T) {
		err := f.svc.DeleteUser(ctx, seeded.ID, seeded.ID.String())
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})

	payloads := map[string][]string{
		"no roles":         {},
		"other role":       {"DISPECER"},
		"several roles":    {"RIDIC", "DISPECER"},
		"lower-case admin": {"admin"},
	}
	for name, roles := range payloads {
		t.Run("cannot lose the administrator role: "+name, func(t *testing.T) {
			_, err := f.svc.AssignRoles(ctx, other.ID, seeded.ID.String(), AssignRolesRequest{Roles: roles})
			require.Error(t, err)
			assert.Equal(t, []string{authz.AdminRoleName}, f.store.roleNames(seeded.ID))
		})
	}

	t.Run("cannot be deactivated", func(t *testing.T) {
		inactive := false
		_, err := f.svc.UpdateUser(ctx, other.ID, seeded.ID.String(), UpdateUserRequest{IsActive: &inactive})
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
		assert.True(t, f.store.users[seeded.ID].IsActive)
	})

	t.Run("may gain extra roles while keeping ADMIN", func(t *testing.T) {
		resp, err := f.svc.AssignRoles(ctx, other.ID, seeded.ID.String(), AssignRolesRequest{Roles: []string{"ADMIN", "RIDIC"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"ADMIN", "RIDIC"}, resp.Roles)
		assert.True(t, resp.IsProtected)
	})
}

func TestLastAdministratorRemains(t *testing.T) {
	ctx := context.Background()

	t.Run("demoting the only active administrator conflicts", func(t *testing.T) {
		f := newUserFixture(t)
		only := f.store.addUser("sef@example.cz", "heslo12345", true, f.admin)
		f.store.addUser("byvaly@example.cz", "heslo12345", false, f.admin)

		_, err := f.svc.AssignRoles(ctx, only.ID, only.ID.String(), AssignRolesRequest{Roles: []string{"DISPECER"}})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, []string{"ADMIN"}, f.store.roleNames(only.ID))

		assert.ErrorIs(t, f.svc.DeleteUser(ctx, only.ID, only.ID.String()), apperr.ErrConflict)
	})

	t.Run("demotion allowed while another administrator remains", func(t *testing.T) {
		f := newUserFixture(t)
		a := f.store.addUser("a@example.cz", "heslo12345", true, f.admin)
		b := f.store.addUser("b@example.cz", "heslo12345", true, f.admin)

		resp, err := f.svc.AssignRoles(ctx, a.ID, b.ID.String(), AssignRolesRequest{Roles: []string{"DISPECER"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"DISPECER"}, resp.Roles)
		assert.Equal(t, []string{EventUserRolesChanged}, f.notifier.types())

		_, err = f.svc.AssignRoles(ctx, b.ID, a.ID.String(), AssignRolesRequest{Roles: []string{"RIDIC"}})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestAdminGuardAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	admin := f.store.addUser("a@example.cz", "heslo12345", true, f.dispecer, f.admin)
	disabled := f.store.addUser("d@example.cz", "heslo12345", false, f.admin)
	dispatcher := f.store.addUser("x@example.cz", "heslo12345", true, f.dispecer)

	tests := []struct {
		name   string
		caller uuid.UUID
		want   error
	}{
		{"administrator in any position", admin.ID, nil},
		{"unknown caller", uuid.New(), apperr.ErrAuthentication},
		{"disabled caller", disabled.ID, apperr.ErrAuthentication},
		{"caller without ADMIN", dispatcher.ID, apperr.ErrAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.guard.Authorize(ctx, tt.caller)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("demotion takes effect on the next call", func(t *testing.T) {
		f.store.assignments[admin.ID] = []uuid.UUID{f.dispecer.ID}
		assert.ErrorIs(t, f.guard.Authorize(ctx, admin.ID), apperr.ErrAuthorization)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("hashes password and keeps role order", func(t *testing.T) {
		f := newUserFixture(t)
		resp, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{
			Email:       " Jan@Example.cz ",
			DisplayName: "Jan",
			Password:    "tajneheslo",
			Roles:       []string{"RIDIC", "DISPECER"},
		})
		require.NoError(t, err)
		assert.Equal(t, "jan@example.cz", resp.Email)
		assert.Equal(t, []string{"RIDIC", "DISPECER"}, resp.Roles)
		assert.True(t, resp.IsActive)

		stored := f.store.users[resp.ID]
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("tajneheslo")))
		require.Len(t, f.store.audits, 1)
		assert.Equal(t, model.ActionCreateUser, f.store.audits[0].Action)
	})

	t.Run("duplicate and padded role names collapse", func(t *testing.T) {
		f := newUserFixture(t)
		resp, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{
			Email:       "petr@example.cz",
			DisplayName: "Petr",
			Password:    "tajneheslo",
			Roles:       []string{"DISPECER", " RIDIC", "DISPECER", "RIDIC "},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"DISPECER", "RIDIC"}, resp.Roles)
		require.Len(t, f.store.audits, 1)
		assert.JSONEq(t, `{"roles":["DISPECER","RIDIC"]}`, f.store.audits[0].Details)
	})

	t.Run("unknown roles are all reported", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{
			Email:       "jan@example.cz",
			DisplayName: "Jan",
			Password:    "tajneheslo",
			Roles:       []string{"PILOT", "RIDIC", "KAPITAN"},
		})
		fields := validationFields(t, err)
		assert.Len(t, fields, 2)
		assert.Empty(t, f.store.users)
	})

	t.Run("duplicate e-mail conflicts", func(t *testing.T) {
		f := newUserFixture(t)
		f.store.addUser("jan@example.cz", "heslo12345", true)
		_, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{Email: "jan@example.cz", DisplayName: "Jan", Password: "tajneheslo"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{Email: "jan@example.cz", DisplayName: "Jan", Password: "kratke"})
		fields := validationFields(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, "password", fields[0].Field)
	})
}

func TestEffectiveAccess(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.store.addUser("jan@example.cz", "heslo12345", true, f.ridic, f.dispecer)

	resp, err := f.svc.EffectiveAccess(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"RIDIC", "DISPECER"}, resp.Roles)
	assert.Equal(t, "RIDIC", resp.Claims.Role())
	assert.Equal(t, []string{"/dashboard/ridic"}, resp.Claims.AllowedPages())
	assert.ElementsMatch(t, []model.Permission{model.PermDriverAccess, model.PermManageVehicles}, resp.Claims.Permissions())

	_, err = f.svc.EffectiveAccess(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePreference(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	u := f.store.addUser("jan@example.cz", "heslo12345", true, f.dispecer)

	t.Run("landing page outside the grants is rejected", func(t *testing.T) {
		landing := "/dashboard/admin/users"
		_, err := f.svc.UpdatePreference(ctx, u.ID, UpdatePreferenceRequest{DefaultLandingPage: &landing})
		fields := validationFields(t, err)
		assert.Equal(t, "default_landing_page", fields[0].Field)
		assert.Empty(t, f.store.prefs)
	})

	t.Run("covered landing page is stored normalized", func(t *testing.T) {
		landing := "/dashboard/auta/7/"
		resp, err := f.svc.UpdatePreference(ctx, u.ID, UpdatePreferenceRequest{DefaultLandingPage: &landing, Theme: "dark", PageSize: 50})
		require.NoError(t, err)
		assert.Equal(t, "/dashboard/auta/7", *resp.DefaultLandingPage)

		got, err := f.svc.GetPreference(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "dark", got.Theme)
		assert.Equal(t, 50, got.PageSize)
	})

	t.Run("unknown theme fails validation", func(t *testing.T) {
		_, err := f.svc.UpdatePreference(ctx, u.ID, UpdatePreferenceRequest{Theme: "neon"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("no row reads as empty preference", func(t *testing.T) {
		got, err := f.svc.GetPreference(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got.DefaultLandingPage)
	})
}

func TestEnsureAdminAccount(t *testing.T) {
	ctx := context.Background()
	cfg := config.AdminConfig{Email: protectedEmail, Password: "zmenit-heslo", DisplayName: "Administrátor"}

	t.Run("creates the account with ADMIN as primary role", func(t *testing.T) {
		f := newUserFixture(t)
		require.NoError(t, f.svc.EnsureAdminAccount(ctx, cfg))
		require.NoError(t, f.svc.EnsureAdminAccount(ctx, cfg))

		require.Len(t, f.store.users, 1)
		for id := range f.store.users {
			assert.Equal(t, []string{"ADMIN"}, f.store.roleNames(id))
		}
	})

	t.Run("restores ADMIN in front of existing roles", func(t *testing.T) {
		f := newUserFixture(t)
		u := f.store.addUser(protectedEmail, "heslo12345", false, f.ridic)

		require.NoError(t, f.svc.EnsureAdminAccount(ctx, cfg))
		assert.Equal(t, []string{"ADMIN", "RIDIC"}, f.store.roleNames(u.ID))
		assert.True(t, f.store.users[u.ID].IsActive)
	})

	t.Run("missing password for a new account fails", func(t *testing.T) {
		f := newUserFixture(t)
		err := f.svc.EnsureAdminAccount(ctx, config.AdminConfig{Email: protectedEmail})
		assert.Error(t, err)
	})
}
