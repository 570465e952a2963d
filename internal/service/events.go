// Package service implements the application's business logic.
package service

import (
	"context"

	"devlink/internal/models"
)

// EventPublisher publishes realtime events to subscribed clients. Delivery is
// best effort; a publish failure must never fail the triggering operation.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, userID uint, event string, payload any) error
	PublishPostEvent(ctx context.Context, postID uint, event string, payload any) error
}

// PushDispatcher delivers push notifications to a user's registered devices.
type PushDispatcher interface {
	Dispatch(ctx context.Context, userID uint, notification *models.Notification) error
}

// NotificationSink accepts notifications produced as side effects of friend
// and post operations. Implementations persist and fan out; callers do not
// observe failures.
type NotificationSink interface {
	Notify(ctx context.Context, notification *models.Notification)
}
