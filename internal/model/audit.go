package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRole            = "CREATE_ROLE"
	ActionUpdateRole            = "UPDATE_ROLE"
	ActionUpdateRolePermissions = "UPDATE_ROLE_PERMISSIONS"
	ActionDeleteRole            = "DELETE_ROLE"

	ActionCreateUser      = "CREATE_USER"
	ActionUpdateUser      = "UPDATE_USER"
	ActionDeleteUser      = "DELETE_USER"
	ActionAssignUserRoles = "ASSIGN_USER_ROLES"
)

// AuditLog tracks Who, What, and When for role and account changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nil for seeding
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
