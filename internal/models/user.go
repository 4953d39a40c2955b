package models

import "gorm.io/gorm"

// Role is the closed set of user roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User represents a registered account.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username   string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email      string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password   string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Role       Role   `json:"role" gorm:"type:varchar(16);default:user"`
	gorm.Model        // CreatedAt, UpdatedAt, DeletedAt
}

// IsAdmin is the capability check used by every admin-gated operation.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
