package repository

import (
	"context"
	"fmt"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	CountActiveUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %s", id))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", email))
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("email asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

// Delete soft-deletes the user and drops their role assignments, which are
// not covered by the soft delete.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.User{}).Error
}

// ListRoleNames returns the user's role names in assignment order.
func (r *userRepository) ListRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	err := GetDB(ctx, r.db).
		Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Order("user_roles.position asc").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReplaceRoles sets the user's roles; the first id becomes the primary role.
func (r *userRepository) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}

	rows := make([]model.UserRole, 0, len(roleIDs))
	for i, id := range roleIDs {
		rows = append(rows, model.UserRole{UserID: userID, RoleID: id, Position: i})
	}
	return db.Create(&rows).Error
}

func (r *userRepository) CountActiveUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.UserRole{}).
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.role_id = ? AND users.is_active = ? AND users.deleted_at IS NULL", roleID, true).
		Count(&count).Error
	return count, err
}
