package repository

import (
	"context"
	"testing"

	"devlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository(t *testing.T) {
	repo := NewCommentRepository(testDB)
	postRepo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "cmt_author")
	commenter := newTestUser(t, "cmt_commenter")
	post := newTestPost(t, author.ID, "discuss")

	t.Run("Create loads the author", func(t *testing.T) {
		c := &models.Comment{Content: "first!", UserID: commenter.ID, PostID: post.ID}
		require.NoError(t, repo.Create(ctx, c))
		require.NotZero(t, c.ID)
		assert.Equal(t, commenter.ID, c.User.ID)
	})

	t.Run("ListByPost newest first", func(t *testing.T) {
		c2 := &models.Comment{Content: "second", UserID: author.ID, PostID: post.ID}
		require.NoError(t, repo.Create(ctx, c2))

		comments, err := repo.ListByPost(ctx, post.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, comments, 2)

		count, err := repo.CountByPost(ctx, post.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("Comment count surfaces on the post", func(t *testing.T) {
		got, err := postRepo.GetByID(ctx, post.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CommentsCount)
	})

	t.Run("Delete", func(t *testing.T) {
		comments, err := repo.ListByPost(ctx, post.ID, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, comments)

		require.NoError(t, repo.Delete(ctx, comments[0].ID))
		count, err := repo.CountByPost(ctx, post.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}
