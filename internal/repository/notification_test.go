package repository

import (
	"context"
	"testing"

	"devlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository(t *testing.T) {
	repo := NewNotificationRepository(testDB)
	ctx := context.Background()

	recipient := newTestUser(t, "notif_recipient")
	sender := newTestUser(t, "notif_sender")

	t.Run("Create and ListByRecipient", func(t *testing.T) {
		n := &models.Notification{
			RecipientID: recipient.ID,
			SenderID:    &sender.ID,
			Type:        models.NotificationFriendRequest,
			Content:     "sent you a friend request",
		}
		require.NoError(t, repo.Create(ctx, n))

		list, err := repo.ListByRecipient(ctx, recipient.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, models.NotificationFriendRequest, list[0].Type)
		assert.False(t, list[0].IsRead)
		require.NotNil(t, list[0].Sender)
		assert.Equal(t, sender.ID, list[0].Sender.ID)
	})

	t.Run("Unread count and MarkRead", func(t *testing.T) {
		n2 := &models.Notification{
			RecipientID: recipient.ID,
			SenderID:    &sender.ID,
			Type:        models.NotificationLike,
			Content:     "liked your post",
		}
		require.NoError(t, repo.Create(ctx, n2))

		count, err := repo.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		require.NoError(t, repo.MarkRead(ctx, n2.ID))
		count, err = repo.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		require.NoError(t, repo.MarkAllRead(ctx, recipient.ID))
		count, err = repo.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("Delete", func(t *testing.T) {
		list, err := repo.ListByRecipient(ctx, recipient.ID, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, list)

		require.NoError(t, repo.Delete(ctx, list[0].ID))
		remaining, err := repo.ListByRecipient(ctx, recipient.ID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, remaining, len(list)-1)
	})
}
