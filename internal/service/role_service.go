package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/logging"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name               string   `json:"name" binding:"required" validate:"required,max=50"`
	Description        string   `json:"description"`
	Permissions        []string `json:"permissions" validate:"dive,permission"`
	AllowedPages       []string `json:"allowed_pages" validate:"dive,pagepattern"`
	DefaultLandingPage string   `json:"default_landing_page" validate:"omitempty,pagepattern"`
	IsActive           *bool    `json:"is_active"`
}

// UpdateRoleRequest replaces the role's definition. Permissions is optional;
// when present the permission set is replaced in the same transaction. An
// omitted DefaultLandingPage keeps the stored one if AllowedPages still
// covers it, otherwise it falls back to the first allowed page.
type UpdateRoleRequest struct {
	Name               string    `json:"name" binding:"required" validate:"required,max=50"`
	Description        string    `json:"description"`
	Permissions        *[]string `json:"permissions" validate:"omitempty,dive,permission"`
	AllowedPages       []string  `json:"allowed_pages" validate:"dive,pagepattern"`
	DefaultLandingPage string    `json:"default_landing_page" validate:"omitempty,pagepattern"`
	IsActive           *bool     `json:"is_active"`
}

type UpdateRolePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required" validate:"dive,permission"`
}

type RoleResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	IsSystem           bool     `json:"is_system"`
	IsActive           bool     `json:"is_active"`
	Permissions        []string `json:"permissions"`
	AllowedPages       []string `json:"allowed_pages"`
	DefaultLandingPage string   `json:"default_landing_page"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

type PermissionResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// --- Interface ---

type RoleService interface {
	GetRole(ctx context.Context, name string) (*RoleResponse, error)
	GetRoleByID(ctx context.Context, id string) (*RoleResponse, error)
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	ListActiveRoles(ctx context.Context) ([]RoleResponse, error)
	ListPermissionKeys() []PermissionResponse
	CreateRole(ctx context.Context, actorID uuid.UUID, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actorID uuid.UUID, id string, req UpdateRoleRequest) (*RoleResponse, error)
	UpdateRolePermissions(ctx context.Context, actorID uuid.UUID, id string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actorID uuid.UUID, id string) error
	SeedDefaultRoles(ctx context.Context) error
}

type roleService struct {
	roles    repository.RoleRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	notifier Notifier
}

func NewRoleService(roles repository.RoleRepository, audit repository.AuditRepository, tx repository.TransactionManager, notifier Notifier) RoleService {
	return &roleService{
		roles:    roles,
		audit:    audit,
		tx:       tx,
		notifier: notifierOrNop(notifier),
	}
}

var permissionLabels = map[model.Permission]string{
	model.PermViewDashboard:      "Zobrazit přehled",
	model.PermManageUsers:        "Správa uživatelů",
	model.PermManageVehicles:     "Správa vozidel",
	model.PermViewReports:        "Zobrazit reporty",
	model.PermManageDistribution: "Správa rozvozu",
	model.PermDriverAccess:       "Přístup řidiče",
	model.PermManageRoles:        "Správa rolí",
}

// --- Implementation ---

func (s *roleService) GetRole(ctx context.Context, name string) (*RoleResponse, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) GetRoleByID(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	return toRoleResponses(roles), nil
}

func (s *roleService) ListActiveRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active roles: %w", err)
	}
	return toRoleResponses(roles), nil
}

// ListPermissionKeys returns the fixed permission vocabulary. It never
// touches the database.
func (s *roleService) ListPermissionKeys() []PermissionResponse {
	all := model.AllPermissions()
	res := make([]PermissionResponse, 0, len(all))
	for _, p := range all {
		res = append(res, PermissionResponse{Key: string(p), Label: permissionLabels[p]})
	}
	return res
}

func (s *roleService) CreateRole(ctx context.Context, actorID uuid.UUID, req CreateRoleRequest) (*RoleResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	perms, err := permissionSet("permissions", req.Permissions)
	if err != nil {
		return nil, err
	}
	pages := nonNilPages(req.AllowedPages)
	landing, err := landingFor(pages, req.DefaultLandingPage)
	if err != nil {
		return nil, err
	}

	role := model.Role{
		Name:               req.Name,
		Description:        req.Description,
		IsActive:           req.IsActive == nil || *req.IsActive,
		AllowedPages:       pages,
		DefaultLandingPage: landing,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureNameFree(txCtx, role.Name, uuid.Nil); err != nil {
			return err
		}
		if err := s.roles.Create(txCtx, &role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if err := s.roles.ReplacePermissions(txCtx, role.ID, perms); err != nil {
			return fmt.Errorf("failed to assign permissions: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionCreateRole, role.ID.String(), role.Name, map[string]any{
			"permissions":          perms,
			"allowed_pages":        role.AllowedPages,
			"default_landing_page": role.DefaultLandingPage,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(Event{Type: EventRoleCreated, EntityID: role.ID.String(), Name: role.Name})
	return s.GetRoleByID(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, actorID uuid.UUID, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	var perms []model.Permission
	if req.Permissions != nil {
		if perms, err = permissionSet("permissions", *req.Permissions); err != nil {
			return nil, err
		}
	}
	pages := nonNilPages(req.AllowedPages)
	if req.DefaultLandingPage != "" {
		if _, err := landingFor(pages, req.DefaultLandingPage); err != nil {
			return nil, err
		}
	}

	var role *model.Role
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err = s.roles.FindByID(txCtx, roleID)
		if err != nil {
			return err
		}
		if role.IsSystem {
			if role.Name != req.Name {
				return fmt.Errorf("cannot rename system role %q: %w", role.Name, apperr.ErrAuthorization)
			}
			if req.IsActive != nil && !*req.IsActive {
				return fmt.Errorf("cannot deactivate system role %q: %w", role.Name, apperr.ErrAuthorization)
			}
		}
		if err := s.ensureNameFree(txCtx, req.Name, role.ID); err != nil {
			return err
		}

		role.Name = req.Name
		role.Description = req.Description
		landing, err := keptLanding(pages, req.DefaultLandingPage, role.DefaultLandingPage)
		if err != nil {
			return err
		}

		role.AllowedPages = pages
		role.DefaultLandingPage = landing
		if req.IsActive != nil {
			role.IsActive = *req.IsActive
		}

		if err := s.roles.Update(txCtx, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		details := map[string]any{
			"allowed_pages":        role.AllowedPages,
			"default_landing_page": role.DefaultLandingPage,
			"is_active":            role.IsActive,
		}
		if req.Permissions != nil {
			if err := s.roles.ReplacePermissions(txCtx, role.ID, perms); err != nil {
				return fmt.Errorf("failed to replace permissions: %w", err)
			}
			details["permissions"] = perms
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionUpdateRole, role.ID.String(), role.Name, details)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(Event{Type: EventRoleUpdated, EntityID: role.ID.String(), Name: role.Name})
	return s.GetRoleByID(ctx, id)
}

// UpdateRolePermissions replaces the whole permission set. Any unknown key
// rejects the request before anything is written.
func (s *roleService) UpdateRolePermissions(ctx context.Context, actorID uuid.UUID, id string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	roleID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(req); err != nil {
		return nil, err
	}
	perms, err := permissionSet("permissions", req.Permissions)
	if err != nil {
		return nil, err
	}

	var role *model.Role
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err = s.roles.FindByID(txCtx, roleID)
		if err != nil {
			return err
		}
		if err := s.roles.ReplacePermissions(txCtx, role.ID, perms); err != nil {
			return fmt.Errorf("failed to update permissions: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionUpdateRolePermissions, role.ID.String(), role.Name, map[string]any{
			"before": role.PermissionKeys(),
			"after":  perms,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(Event{Type: EventRoleUpdated, EntityID: role.ID.String(), Name: role.Name})
	return s.GetRoleByID(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, actorID uuid.UUID, id string) error {
	roleID, err := parseID("id", id)
	if err != nil {
		return err
	}

	var role *model.Role
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err = s.roles.FindByID(txCtx, roleID)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return fmt.Errorf("cannot delete system role %q: %w", role.Name, apperr.ErrAuthorization)
		}

		assigned, err := s.roles.CountUsersForRole(txCtx, role.ID)
		if err != nil {
			return fmt.Errorf("failed to count role assignments: %w", err)
		}
		if assigned > 0 {
			return fmt.Errorf("role %q is assigned to %d user(s): %w", role.Name, assigned, apperr.ErrConflict)
		}

		if err := s.roles.Delete(txCtx, role.ID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return recordAudit(txCtx, s.audit, actorID, model.ActionDeleteRole, role.ID.String(), role.Name, nil)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(Event{Type: EventRoleDeleted, EntityID: role.ID.String(), Name: role.Name})
	return nil
}

type roleSeed struct {
	Name        string
	Description string
	System      bool
	Permissions []model.Permission
	Pages       []string
	Landing     string
}

func defaultRoleSeeds() []roleSeed {
	return []roleSeed{
		{
			Name:        authz.AdminRoleName,
			Description: "Administrátor: plný přístup",
			System:      true,
			Permissions: model.AllPermissions(),
			Pages:       authz.AdminAllowedPages(),
			Landing:     authz.DefaultLandingPage,
		},
		{
			Name:        "DISPECER",
			Description: "Dispečer vozového parku",
			Permissions: []model.Permission{model.PermManageVehicles},
			Pages:       []string{"/dashboard/auta"},
			Landing:     "/dashboard/auta",
		},
		{
			Name:        "RIDIC",
			Description: "Řidič",
			Permissions: []model.Permission{model.PermDriverAccess},
			Pages:       []string{"/dashboard/ridic"},
			Landing:     "/dashboard/ridic",
		},
		{
			Name:        "ROZVOZ",
			Description: "Plánování rozvozu tisku",
			Permissions: []model.Permission{model.PermViewDashboard, model.PermManageDistribution},
			Pages:       []string{"/dashboard", "/dashboard/rozvoz"},
			Landing:     "/dashboard/rozvoz",
		},
		{
			Name:        "UCETNI",
			Description: "Účetní",
			Permissions: []model.Permission{model.PermViewDashboard, model.PermViewReports},
			Pages:       []string{"/dashboard", "/dashboard/transakce", "/dashboard/reporty"},
			Landing:     "/dashboard/reporty",
		},
	}
}

// SeedDefaultRoles creates the built-in roles that are missing. Existing
// rows are left alone so administrator edits survive restarts.
func (s *roleService) SeedDefaultRoles(ctx context.Context) error {
	for _, seed := range defaultRoleSeeds() {
		_, err := s.roles.FindByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("failed to look up role '%s': %w", seed.Name, err)
		}

		role := model.Role{
			Name:               seed.Name,
			Description:        seed.Description,
			IsSystem:           seed.System,
			IsActive:           true,
			AllowedPages:       seed.Pages,
			DefaultLandingPage: seed.Landing,
		}
		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.roles.Create(txCtx, &role); err != nil {
				return err
			}
			if err := s.roles.ReplacePermissions(txCtx, role.ID, seed.Permissions); err != nil {
				return err
			}
			return recordAudit(txCtx, s.audit, uuid.Nil, model.ActionCreateRole, role.ID.String(), role.Name, map[string]any{"seeded": true})
		})
		if err != nil {
			return fmt.Errorf("failed to seed role '%s': %w", seed.Name, err)
		}
		logging.Info("seeded role", "role", seed.Name)
	}
	return nil
}

func (s *roleService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.roles.FindByName(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if existing.ID != self {
		return fmt.Errorf("role %q already exists: %w", name, apperr.ErrConflict)
	}
	return nil
}

// --- Helpers ---

// permissionSet validates keys against the fixed vocabulary and reports
// every unknown key at once.
func permissionSet(field string, keys []string) ([]model.Permission, error) {
	perms, invalid := authz.ValidatePermissionKeys(keys)
	if len(invalid) == 0 {
		return perms, nil
	}
	verr := apperr.NewValidationError()
	for _, k := range invalid {
		verr.Add(field, fmt.Sprintf("unknown permission key %q", k))
	}
	return nil, verr
}

func nonNilPages(pages []string) []string {
	if pages == nil {
		return []string{}
	}
	return pages
}

// landingFor picks the role's landing page. An explicit landing page must be
// reachable through the role's own allowed pages; an omitted one defaults to
// the first concrete allowed page.
func landingFor(pages []string, requested string) (string, error) {
	if requested == "" {
		for _, p := range pages {
			if p != authz.WildcardPage {
				return p, nil
			}
		}
		return authz.DefaultLandingPage, nil
	}
	if len(pages) > 0 && !authz.IsAllowed(requested, pages) {
		return "", apperr.NewValidationError(apperr.FieldError{
			Field:   "default_landing_page",
			Message: fmt.Sprintf("%q is not covered by allowed_pages", requested),
		})
	}
	return authz.Normalize(requested), nil
}

// keptLanding is landingFor for updates: an omitted landing page keeps the
// stored one while the new allowed pages still cover it.
func keptLanding(pages []string, requested, stored string) (string, error) {
	if requested == "" && stored != "" && (len(pages) == 0 || authz.IsAllowed(stored, pages)) {
		return stored, nil
	}
	return landingFor(pages, requested)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NewValidationError(apperr.FieldError{Field: field, Message: "must be a UUID"})
	}
	return id, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	keys := r.PermissionKeys()
	perms := make([]string, 0, len(keys))
	for _, p := range keys {
		perms = append(perms, string(p))
	}

	return RoleResponse{
		ID:                 r.ID.String(),
		Name:               r.Name,
		Description:        r.Description,
		IsSystem:           r.IsSystem,
		IsActive:           r.IsActive,
		Permissions:        perms,
		AllowedPages:       nonNilPages(r.AllowedPages),
		DefaultLandingPage: r.DefaultLandingPage,
		CreatedAt:          r.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:          r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toRoleResponses(roles []model.Role) []RoleResponse {
	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res
}
