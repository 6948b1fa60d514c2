package model

import (
	"time"

	"github.com/google/uuid"
)

// Role groups permissions with navigation grants for a class of users
type Role struct {
	ID                 uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name               string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description        string           `gorm:"type:text" json:"description"`
	IsSystem           bool             `gorm:"not null" json:"is_system"` // Cannot be deleted or renamed
	IsActive           bool             `gorm:"not null" json:"is_active"`
	AllowedPages       []string         `gorm:"type:jsonb;serializer:json;not null" json:"allowed_pages"`
	DefaultLandingPage string           `gorm:"type:varchar(255);not null" json:"default_landing_page"`
	Permissions        []RolePermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"permissions"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// RolePermission is one permission row of a role. Rows are replaced as a set.
type RolePermission struct {
	RoleID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	Permission Permission `gorm:"type:varchar(50);primaryKey" json:"permission"`
	Position   int        `gorm:"not null" json:"-"`
}

// PermissionKeys returns the role's permissions in stored order.
func (r *Role) PermissionKeys() []Permission {
	keys := make([]Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		keys = append(keys, p.Permission)
	}
	return keys
}
