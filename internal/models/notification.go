package models

import (
	"time"
)

// NotificationType tags the event that produced a notification.
type NotificationType string

const (
	NotificationFriendRequest NotificationType = "friend_request"
	NotificationFriendAccept  NotificationType = "friend_accept"
	NotificationFriendReject  NotificationType = "friend_reject"
	NotificationLike          NotificationType = "like"
	NotificationComment       NotificationType = "comment"
	NotificationMention       NotificationType = "mention"
	NotificationJob           NotificationType = "job"
	NotificationSystem        NotificationType = "system"
	NotificationRepost        NotificationType = "repost"
)

// Notification is a persisted event for a recipient. It is created only as
// a side effect of friend or post operations and is never mutated afterwards
// except for IsRead and deletion by the recipient.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index" json:"recipient_id"`
	SenderID    *uint            `json:"sender_id,omitempty"`
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Content     string           `json:"content"`
	Link        string           `json:"link"`
	RepostID    *uint            `json:"repost_id,omitempty"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`

	// Relationships
	Recipient User  `gorm:"foreignKey:RecipientID" json:"-"`
	Sender    *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Repost    *Post `gorm:"foreignKey:RepostID" json:"repost,omitempty"`
}
