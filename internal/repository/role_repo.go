package repository

import (
	"context"
	"fmt"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	LockByName(ctx context.Context, name string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	ListActive(ctx context.Context) ([]model.Role, error)
	ListPermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error)
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []model.Permission) error
	CountUsersForRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func preloadPermissions(db *gorm.DB) *gorm.DB {
	return db.Preload("Permissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	})
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit("Permissions").Create(role).Error
}

// Update saves the role's own columns; permissions go through ReplacePermissions.
func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit("Permissions").Save(role).Error
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Role{}).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := preloadPermissions(GetDB(ctx, r.db)).First(&role, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("role %s", id))
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := preloadPermissions(GetDB(ctx, r.db)).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("role %q", name))
	}
	return &role, nil
}

// LockByName reads a role row with FOR UPDATE. Only useful inside RunInTx.
func (r *roleRepository) LockByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&role).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("role %q", name))
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := preloadPermissions(GetDB(ctx, r.db)).Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) ListActive(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := preloadPermissions(GetDB(ctx, r.db)).Where("is_active = ?", true).Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) ListPermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	var perms []model.Permission
	err := GetDB(ctx, r.db).
		Model(&model.RolePermission{}).
		Where("role_id = ?", roleID).
		Order("position asc").
		Pluck("permission", &perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// ReplacePermissions deletes every permission row of the role and inserts
// perms in order. Callers run it inside RunInTx together with Update.
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []model.Permission) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}

	rows := make([]model.RolePermission, 0, len(perms))
	for i, p := range perms {
		rows = append(rows, model.RolePermission{RoleID: roleID, Permission: p, Position: i})
	}
	return db.Create(&rows).Error
}

func (r *roleRepository) CountUsersForRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}
