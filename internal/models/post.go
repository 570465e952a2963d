// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MediaKind classifies a post attachment.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// PostMedia is an ordered media attachment on a post.
type PostMedia struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	URL       string    `gorm:"not null" json:"url"`
	Kind      MediaKind `gorm:"type:varchar(20);default:'image'" json:"kind"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Position  int       `gorm:"default:0" json:"position"`
}

// Post represents a post in the Devlink application.
//
// Content is empty for pure-repost shares. RepostID, when non-nil, marks
// this post as a share of the referenced original; the partial unique index
// on (author_id, repost_id) enforces at most one repost per author and
// original, closing the duplicate-repost race at the storage layer.
//
// DeletedAt implements the soft-delete lifecycle: default queries exclude
// deleted rows, and only author-scoped Unscoped lookups see them.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AuthorID uint   `gorm:"not null;index;uniqueIndex:idx_author_repost,where:repost_id IS NOT NULL" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	Content  string `gorm:"type:text" json:"content"`
	// Tags holds derived hashtags, lowercased, comma-joined.
	Tags       string      `json:"tags"`
	Visibility string      `gorm:"type:varchar(20);default:'public'" json:"visibility"`
	Media      []PostMedia `gorm:"foreignKey:PostID" json:"media,omitempty"`

	RepostID *uint `gorm:"uniqueIndex:idx_author_repost,where:repost_id IS NOT NULL" json:"repost_id,omitempty"`
	Repost   *Post `gorm:"foreignKey:RepostID" json:"repost,omitempty"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// SharesCount is not persisted; computed at query time
	SharesCount int `gorm:"->" json:"shares_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"->" json:"liked"`
	// Saved indicates whether the current requesting user bookmarked this post (computed)
	Saved bool `gorm:"->" json:"saved"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the post is currently soft-deleted.
func (p *Post) IsDeleted() bool {
	return p.DeletedAt.Valid
}

// IsRepost reports whether the post is a share of another post.
func (p *Post) IsRepost() bool {
	return p.RepostID != nil
}
