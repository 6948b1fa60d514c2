package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"

	"github.com/google/uuid"
)

// AdminGuard protects role and user mutations. Every check reads the
// current state from the database; nothing is taken from the session.
type AdminGuard interface {
	// Authorize fails with ErrAuthentication when the caller no longer
	// exists or is disabled, and with ErrAuthorization when the caller does
	// not currently hold the administrator role.
	Authorize(ctx context.Context, callerID uuid.UUID) error

	// CheckUserRemoval runs before a user is deleted or deactivated.
	CheckUserRemoval(ctx context.Context, user *model.User) error

	// CheckRoleChange runs before a user's roles are replaced by newRoles.
	CheckRoleChange(ctx context.Context, user *model.User, newRoles []string) error

	// IsProtected reports whether user is the seeded administrator account.
	IsProtected(user *model.User) bool
}

type adminGuard struct {
	users          repository.UserRepository
	roles          repository.RoleRepository
	protectedEmail string
}

func NewAdminGuard(users repository.UserRepository, roles repository.RoleRepository, protectedEmail string) AdminGuard {
	return &adminGuard{
		users:          users,
		roles:          roles,
		protectedEmail: strings.ToLower(strings.TrimSpace(protectedEmail)),
	}
}

func (g *adminGuard) Authorize(ctx context.Context, callerID uuid.UUID) error {
	caller, err := g.users.GetByID(ctx, callerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("caller %s no longer exists: %w", callerID, apperr.ErrAuthentication)
	}
	if err != nil {
		return fmt.Errorf("load caller: %w", err)
	}
	if !caller.IsActive {
		return fmt.Errorf("caller %s is disabled: %w", callerID, apperr.ErrAuthentication)
	}

	names, err := g.users.ListRoleNames(ctx, callerID)
	if err != nil {
		return fmt.Errorf("load caller roles: %w", err)
	}
	if !authz.HasAdminRole(names) {
		return fmt.Errorf("caller %s is not an administrator: %w", callerID, apperr.ErrAuthorization)
	}
	return nil
}

func (g *adminGuard) IsProtected(user *model.User) bool {
	return user != nil && g.protectedEmail != "" && strings.EqualFold(user.Email, g.protectedEmail)
}

func (g *adminGuard) CheckUserRemoval(ctx context.Context, user *model.User) error {
	if g.IsProtected(user) {
		return fmt.Errorf("the seeded administrator account cannot be removed: %w", apperr.ErrAuthorization)
	}
	if !user.IsActive {
		return nil
	}

	names, err := g.users.ListRoleNames(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load user roles: %w", err)
	}
	if !authz.HasAdminRole(names) {
		return nil
	}
	return g.ensureAnotherAdmin(ctx)
}

func (g *adminGuard) CheckRoleChange(ctx context.Context, user *model.User, newRoles []string) error {
	if authz.HasAdminRole(newRoles) {
		return nil
	}
	if g.IsProtected(user) {
		return fmt.Errorf("the seeded administrator account must keep the %s role: %w", authz.AdminRoleName, apperr.ErrAuthorization)
	}
	if !user.IsActive {
		return nil
	}

	current, err := g.users.ListRoleNames(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load user roles: %w", err)
	}
	if !slices.ContainsFunc(current, authz.IsAdminRole) {
		return nil
	}
	return g.ensureAnotherAdmin(ctx)
}

// ensureAnotherAdmin locks the ADMIN role row so concurrent demotions queue
// up behind each other, then requires at least two active administrators:
// the one about to lose the role and one that remains. It must run inside
// RunInTx for the lock to hold until commit.
func (g *adminGuard) ensureAnotherAdmin(ctx context.Context) error {
	adminRole, err := g.roles.LockByName(ctx, authz.AdminRoleName)
	if err != nil {
		return fmt.Errorf("lock administrator role: %w", err)
	}

	count, err := g.users.CountActiveUsersWithRole(ctx, adminRole.ID)
	if err != nil {
		return fmt.Errorf("count administrators: %w", err)
	}
	if count <= 1 {
		return fmt.Errorf("at least one active administrator must remain: %w", apperr.ErrConflict)
	}
	return nil
}
