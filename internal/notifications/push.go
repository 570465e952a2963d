package notifications

import (
	"context"
	"log/slog"

	"devlink/internal/middleware"
	"devlink/internal/models"
)

// OnlineChecker reports whether a user has a live websocket connection.
type OnlineChecker interface {
	IsOnline(userID uint) bool
}

// PushService decides whether a notification needs an out-of-band push. Users
// with a live websocket already got the realtime event, so pushes only go to
// offline users. Actual provider delivery sits behind Sender.
type PushService struct {
	online OnlineChecker
	sender PushSender
}

// PushSender delivers a push to a provider (APNs, FCM, webpush). The default
// sender only records the delivery in the log.
type PushSender interface {
	Send(ctx context.Context, userID uint, title, body, link string) error
}

// LogSender is the fallback sender used when no push provider is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, userID uint, title, body, link string) error {
	middleware.Logger.InfoContext(ctx, "push notification",
		slog.Any("user_id", userID),
		slog.String("title", title),
		slog.String("body", body),
		slog.String("link", link),
	)
	return nil
}

// NewPushService returns a PushService. A nil sender falls back to LogSender.
func NewPushService(online OnlineChecker, sender PushSender) *PushService {
	if sender == nil {
		sender = LogSender{}
	}
	return &PushService{online: online, sender: sender}
}

// Dispatch sends a push for the notification unless the recipient is online.
func (p *PushService) Dispatch(ctx context.Context, userID uint, notification *models.Notification) error {
	if p.online != nil && p.online.IsOnline(userID) {
		return nil
	}
	return p.sender.Send(ctx, userID, titleFor(notification.Type), notification.Content, notification.Link)
}

func titleFor(t models.NotificationType) string {
	switch t {
	case models.NotificationFriendRequest:
		return "New friend request"
	case models.NotificationFriendAccept:
		return "Friend request accepted"
	case models.NotificationFriendReject:
		return "Friend request declined"
	case models.NotificationLike:
		return "New like"
	case models.NotificationComment:
		return "New comment"
	case models.NotificationRepost:
		return "Post reposted"
	case models.NotificationMention:
		return "You were mentioned"
	default:
		return "DevLink"
	}
}
