package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that can sign in to the fleet dashboard
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName string         `gorm:"type:varchar(255);not null" json:"display_name"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	IsActive    bool           `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// UserRole assigns a role to a user. Position 0 is the primary role.
// There is no foreign key to roles; role deletion checks assignments itself.
type UserRole struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"role_id"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserPreference holds optional per-user overrides
type UserPreference struct {
	UserID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	DefaultLandingPage *string   `gorm:"type:varchar(255)" json:"default_landing_page"`
	Theme              string    `gorm:"type:varchar(20)" json:"theme"`
	PageSize           int       `json:"page_size"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
