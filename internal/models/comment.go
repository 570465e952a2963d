// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Comment represents a comment on a post in the Devlink application.
// Comments live in their own table keyed by PostID; the post's comment
// count is derived from this table at query time.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
