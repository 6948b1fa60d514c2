package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/config"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/logging"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Email       string   `json:"email" binding:"required,email" validate:"required,email"`
	DisplayName string   `json:"display_name" binding:"required" validate:"required,max=255"`
	Password    string   `json:"password" binding:"required,min=8" validate:"required,min=8"`
	Roles       []string `json:"roles" validate:"dive,required"`
	IsActive    *bool    `json:"is_active"`
}

type UpdateUserRequest struct {
	Email       string `json:"email" binding:"omitempty,email" validate:"omitempty,email"`
	DisplayName string `json:"display_name" validate:"max=255"`
	Password    string `json:"password" validate:"omitempty,min=8"`
	IsActive    *bool  `json:"is_active"`
}

// AssignRolesRequest replaces the user's roles. The first entry becomes the
// primary role and supplies navigation grants.
type AssignRolesRequest struct {
	Roles []string `json:"roles" binding:"required" validate:"dive,required"`
}

type UpdatePreferenceRequest struct {
	DefaultLandingPage *string `json:"default_landing_page" validate:"omitempty,pagepattern"`
	Theme              string  `json:"theme" validate:"omitempty,oneof=light dark system"`
	PageSize           int     `json:"page_size" validate:"min=0,max=100"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	IsProtected bool      `json:"is_protected"`
	Roles       []string  `json:"roles"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// EffectiveAccessResponse is what the user would get from a login right now.
type EffectiveAccessResponse struct {
	UserID string       `json:"user_id"`
	Roles  []string     `json:"roles"`
	Claims authz.Claims `json:"claims"`
}

type PreferenceResponse struct {
	DefaultLandingPage *string `json:"default_landing_page"`
	Theme              string  `json:"theme"`
	PageSize           int     `json:"page_size"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	CreateUser(ctx context.Context, actorID uuid.UUID, req CreateUserRequest) (*UserResponse, error)
	UpdateUser(ctx context.Context, actorID uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actorID uuid.UUID, id string) error
	AssignRoles(ctx context.Context, actorID uuid.UUID, id string, req AssignRolesRequest) (*UserResponse, error)
	EffectiveAccess(ctx context.Context, id string) (*EffectiveAccessResponse, error)
	GetPreference(ctx context.Context, userID uuid.UUID) (*PreferenceResponse, error)
	UpdatePreference(ctx context.Context, userID uuid.UUID, req UpdatePreferenceRequest) (*PreferenceResponse, error)
	EnsureAdminAccount(ctx context.Context, cfg config.AdminConfig) error
}

type userService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	prefs    repository.PreferenceRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	guard    AdminGuard
	resolver *authz.Resolver
	notifier Notifier
}

// UserServiceDeps groups the collaborators of the user service.
type UserServiceDeps struct {
	Users    repository.UserRepository
	Roles    repository.RoleRepository
	Prefs    repository.PreferenceRepository
	Audit    repository.AuditRepository
	Tx       repository.TransactionManager
	Guard    AdminGuard
	Resolver *authz.Resolver
	Notifier Notifier
}

// NewUserService returns a new instance of UserService
func NewUserService(deps UserServiceDeps) UserService {
	return &userService{
		users:    deps.Users,
		roles:    deps.Roles,
		prefs:    deps.Prefs,
		audit:    deps.Audit,
		tx:       deps.Tx,
		guard:    deps.Guard,
		resolver: deps.Resolver,
		notifier: notifierOrNop(deps.Notifier),
	}
}

func (s *userService) toResponse(ctx context.Context, user *model.User) (*UserResponse, error) {
	names, err := s.users.ListRoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles of %s: %w", user.ID, err)
	}
	if names == nil {
		names = []string{}
	}
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsActive:    user.IsActive,
		IsProtected: s.guard.IsProtected(user),
		Roles:       names,
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		resp, err := s.toResponse(ctx, &users[i])
		if err != nil {
			return nil, 0, err
		}
		responses = append(responses, *resp)
	}

	return responses, total, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, user)
}

func (s *userService) CreateUser(ctx context.Context, actorID uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    string(hashedPassword),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	names := dedupe(req.Roles)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailFree(txCtx, user.Email, uuid.Nil); err != nil {
			return err
		}
		roleIDs, err := s.roleIDs(txCtx, names)
		if err != nil {
			return err
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if err := s.users.ReplaceRoles(txCtx, user.ID, roleIDs); err != nil {
			return fmt.Errorf("failed to assign roles: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionCreateUser, user.ID.String(), user.Email, map[string]any{
			"roles": names,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, user)
}

func (s *userService) UpdateUser(ctx context.Context, actorID uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error) {
	userID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	var user *model.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.users.GetByID(txCtx, userID)
		if err != nil {
			return err
		}

		changed := make([]string, 0, 4)
		if req.Email != "" && req.Email != user.Email {
			if s.guard.IsProtected(user) {
				return fmt.Errorf("the seeded administrator account keeps its e-mail: %w", apperr.ErrAuthorization)
			}
			if err := s.ensureEmailFree(txCtx, req.Email, user.ID); err != nil {
				return err
			}
			user.Email = req.Email
			changed = append(changed, "email")
		}
		if req.DisplayName != "" && req.DisplayName != user.DisplayName {
			user.DisplayName = req.DisplayName
			changed = append(changed, "display_name")
		}
		if req.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user.Password = string(hashed)
			changed = append(changed, "password")
		}
		if req.IsActive != nil && *req.IsActive != user.IsActive {
			if !*req.IsActive {
				if err := s.guard.CheckUserRemoval(txCtx, user); err != nil {
					return err
				}
			}
			user.IsActive = *req.IsActive
			changed = append(changed, "is_active")
		}

		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionUpdateUser, user.ID.String(), user.Email, map[string]any{
			"changed": changed,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, user)
}

func (s *userService) DeleteUser(ctx context.Context, actorID uuid.UUID, id string) error {
	userID, err := parseID("id", id)
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, userID)
		if err != nil {
			return err
		}
		if err := s.guard.CheckUserRemoval(txCtx, user); err != nil {
			return err
		}
		if err := s.users.Delete(txCtx, user.ID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionDeleteUser, user.ID.String(), user.Email, nil)
	})
}

func (s *userService) AssignRoles(ctx context.Context, actorID uuid.UUID, id string, req AssignRolesRequest) (*UserResponse, error) {
	userID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(req); err != nil {
		return nil, err
	}
	names := dedupe(req.Roles)

	var user *model.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.users.GetByID(txCtx, userID)
		if err != nil {
			return err
		}
		roleIDs, err := s.roleIDs(txCtx, names)
		if err != nil {
			return err
		}
		if err := s.guard.CheckRoleChange(txCtx, user, names); err != nil {
			return err
		}

		before, err := s.users.ListRoleNames(txCtx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to load roles: %w", err)
		}
		if err := s.users.ReplaceRoles(txCtx, user.ID, roleIDs); err != nil {
			return fmt.Errorf("failed to assign roles: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionAssignUserRoles, user.ID.String(), user.Email, map[string]any{
			"before": before,
			"after":  names,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(Event{Type: EventUserRolesChanged, EntityID: user.ID.String(), Name: user.Email})
	return s.toResponse(ctx, user)
}

// EffectiveAccess resolves claims from the current registry state, not from
// any session the user may hold.
func (s *userService) EffectiveAccess(ctx context.Context, id string) (*EffectiveAccessResponse, error) {
	userID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	names, err := s.users.ListRoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	claims, err := s.resolver.Resolve(ctx, authz.Identity{UserID: user.ID, Roles: names})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve claims: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return &EffectiveAccessResponse{UserID: user.ID.String(), Roles: names, Claims: claims}, nil
}

func (s *userService) GetPreference(ctx context.Context, userID uuid.UUID) (*PreferenceResponse, error) {
	pref, err := s.prefs.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	if pref == nil {
		return &PreferenceResponse{}, nil
	}
	return toPreferenceResponse(pref), nil
}

// UpdatePreference stores display settings and the landing page override.
// The override must be reachable with the user's current grants.
func (s *userService) UpdatePreference(ctx context.Context, userID uuid.UUID, req UpdatePreferenceRequest) (*PreferenceResponse, error) {
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	pref := &model.UserPreference{UserID: userID, Theme: req.Theme, PageSize: req.PageSize}
	if req.DefaultLandingPage != nil && *req.DefaultLandingPage != "" {
		names, err := s.users.ListRoleNames(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load roles: %w", err)
		}
		claims, err := s.resolver.Resolve(ctx, authz.Identity{UserID: userID, Roles: names})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve claims: %w", err)
		}
		if !claims.CanNavigate(*req.DefaultLandingPage) {
			return nil, apperr.NewValidationError(apperr.FieldError{
				Field:   "default_landing_page",
				Message: fmt.Sprintf("%q is not an allowed page", *req.DefaultLandingPage),
			})
		}
		landing := authz.Normalize(*req.DefaultLandingPage)
		pref.DefaultLandingPage = &landing
	}

	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}
	return toPreferenceResponse(pref), nil
}

// EnsureAdminAccount creates the seeded administrator account when missing
// and makes sure it holds the ADMIN role as its primary role.
func (s *userService) EnsureAdminAccount(ctx context.Context, cfg config.AdminConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		adminRole, err := s.roles.FindByName(txCtx, authz.AdminRoleName)
		if err != nil {
			return fmt.Errorf("administrator role missing, seed roles first: %w", err)
		}

		user, err := s.users.GetByEmail(txCtx, email)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			if cfg.Password == "" {
				return fmt.Errorf("ADMIN_PASSWORD is required to create %s", email)
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user = &model.User{Email: email, DisplayName: cfg.DisplayName, Password: string(hashed), IsActive: true}
			if err := s.users.Create(txCtx, user); err != nil {
				return fmt.Errorf("failed to create administrator account: %w", err)
			}
			if err := recordAudit(txCtx, s.audit, uuid.Nil, model.ActionCreateUser, user.ID.String(), user.Email, map[string]any{"seeded": true}); err != nil {
				return err
			}
			logging.Info("seeded administrator account", "email", email)
		case err != nil:
			return fmt.Errorf("failed to look up administrator account: %w", err)
		case !user.IsActive:
			user.IsActive = true
			if err := s.users.Update(txCtx, user); err != nil {
				return fmt.Errorf("failed to reactivate administrator account: %w", err)
			}
		}

		names, err := s.users.ListRoleNames(txCtx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to load administrator roles: %w", err)
		}
		if len(names) > 0 && authz.IsAdminRole(names[0]) {
			return nil
		}

		ids := []uuid.UUID{adminRole.ID}
		others, err := s.roleIDs(txCtx, withoutAdmin(names))
		if err != nil {
			return err
		}
		ids = append(ids, others...)
		return s.users.ReplaceRoles(txCtx, user.ID, ids)
	})
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check e-mail: %w", err)
	}
	if existing.ID != self {
		return fmt.Errorf("e-mail %q already in use: %w", email, apperr.ErrConflict)
	}
	return nil
}

// roleIDs maps role names to ids in order, reporting every unknown name.
func (s *userService) roleIDs(ctx context.Context, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(names))
	verr := apperr.NewValidationError()
	for _, name := range names {
		role, err := s.roles.FindByName(ctx, name)
		if errors.Is(err, apperr.ErrNotFound) {
			verr.Add("roles", fmt.Sprintf("unknown role %q", name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up role %q: %w", name, err)
		}
		ids = append(ids, role.ID)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return ids, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func withoutAdmin(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !authz.IsAdminRole(n) {
			out = append(out, n)
		}
	}
	return out
}

func toPreferenceResponse(p *model.UserPreference) *PreferenceResponse {
	return &PreferenceResponse{
		DefaultLandingPage: p.DefaultLandingPage,
		Theme:              p.Theme,
		PageSize:           p.PageSize,
	}
}
