package service

import (
	"context"
	"log/slog"

	"devlink/internal/middleware"
	"devlink/internal/models"
	"devlink/internal/repository"
)

// NotificationService persists notifications and fans them out over the
// realtime and push channels. It implements NotificationSink.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	events    EventPublisher
	push      PushDispatcher
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(
	notifRepo repository.NotificationRepository,
	events EventPublisher,
	push PushDispatcher,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		events:    events,
		push:      push,
	}
}

// Notify persists the notification and fans it out. Every step is best
// effort: failures are logged and counted, never returned, so the primary
// operation that produced the notification is unaffected.
func (s *NotificationService) Notify(ctx context.Context, notification *models.Notification) {
	if err := s.notifRepo.Create(ctx, notification); err != nil {
		middleware.NotificationFanoutFailures.WithLabelValues("persist").Inc()
		middleware.Logger.ErrorContext(ctx, "failed to persist notification",
			slog.Any("recipient_id", notification.RecipientID),
			slog.String("type", string(notification.Type)),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.events != nil {
		if err := s.events.PublishUserEvent(ctx, notification.RecipientID, "notification", notification); err != nil {
			middleware.NotificationFanoutFailures.WithLabelValues("realtime").Inc()
			middleware.Logger.WarnContext(ctx, "failed to broadcast notification",
				slog.Any("recipient_id", notification.RecipientID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.push != nil {
		if err := s.push.Dispatch(ctx, notification.RecipientID, notification); err != nil {
			middleware.NotificationFanoutFailures.WithLabelValues("push").Inc()
			middleware.Logger.WarnContext(ctx, "failed to dispatch push notification",
				slog.Any("recipient_id", notification.RecipientID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	return s.notifRepo.ListByRecipient(ctx, userID, limit, offset)
}

// CountUnread returns the number of unread notifications for the user.
func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

// MarkRead marks a single notification as read. Only the recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	notification, err := s.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return models.NewForbiddenError("You can only mark your own notifications as read")
	}
	return s.notifRepo.MarkRead(ctx, notificationID)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

// Delete removes a notification. Only the recipient may do so.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	notification, err := s.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return models.NewForbiddenError("You can only delete your own notifications")
	}
	return s.notifRepo.Delete(ctx, notificationID)
}
