package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"devlink/internal/models"
	"devlink/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockNotificationRepository is a mock of the NotificationRepository interface
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]models.Notification, error) {
	args := m.Called(ctx, recipientID, limit, offset)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID uint) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// newNotificationTestApp builds an app whose handlers run against the real
// NotificationService backed by the mock repository, with userID injected as
// AuthRequired would.
func newNotificationTestApp(mockRepo *MockNotificationRepository, userID uint) *fiber.App {
	app := fiber.New()
	s := &Server{
		notifService: service.NewNotificationService(mockRepo, nil, nil),
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})

	app.Get("/notifications", s.GetNotifications)
	app.Get("/notifications/unread-count", s.GetUnreadCount)
	app.Post("/notifications/:id/read", s.MarkNotificationRead)
	app.Delete("/notifications/:id", s.DeleteNotification)
	return app
}

func TestGetNotifications(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	app := newNotificationTestApp(mockRepo, 1)

	mockRepo.On("ListByRecipient", mock.Anything, uint(1), 20, 0).
		Return([]models.Notification{{ID: 5, RecipientID: 1}}, nil)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/notifications", nil))
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockRepo.AssertExpectations(t)
}

func TestGetUnreadCount(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	app := newNotificationTestApp(mockRepo, 1)

	mockRepo.On("CountUnread", mock.Anything, uint(1)).Return(int64(3), nil)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMarkNotificationRead(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	app := newNotificationTestApp(mockRepo, 1)

	mockRepo.On("GetByID", mock.Anything, uint(9)).
		Return(&models.Notification{ID: 9, RecipientID: 1}, nil)
	mockRepo.On("MarkRead", mock.Anything, uint(9)).Return(nil)

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/notifications/9/read", nil))
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mockRepo.AssertExpectations(t)
}

func TestMarkNotificationRead_WrongRecipient(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	app := newNotificationTestApp(mockRepo, 1)

	// Notification belongs to user 2, caller is user 1.
	mockRepo.On("GetByID", mock.Anything, uint(9)).
		Return(&models.Notification{ID: 9, RecipientID: 2}, nil)

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/notifications/9/read", nil))
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	mockRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestDeleteNotification_InvalidID(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	app := newNotificationTestApp(mockRepo, 1)

	resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/notifications/banana", nil))
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
