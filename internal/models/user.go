// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role represents a user's privilege level.
type Role string

const (
	// RoleUser is the default role for registered accounts.
	RoleUser Role = "user"
	// RoleAdmin can manage users and moderate content.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin can manage admins.
	RoleSuperAdmin Role = "superadmin"
)

// User represents an account in the Devlink application.
// Password is empty for OAuth-provisioned accounts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Password  string    `json:"-"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Avatar    string    `json:"avatar"`
	Headline  string    `json:"headline"`
	Role      Role      `gorm:"type:varchar(20);default:'user'" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}

// IsAdmin reports whether the user holds an admin or superadmin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
