package repository

import (
	"context"
	"testing"

	"devlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPost(t *testing.T, authorID uint, content string) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Content: content, Visibility: "public"}
	require.NoError(t, testDB.Create(p).Error)
	return p
}

func TestPostRepository_LikeLifecycle(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "post_author")
	liker := newTestUser(t, "post_liker")
	post := newTestPost(t, author.ID, "hello world")

	liked, err := repo.IsLiked(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	require.NoError(t, repo.Like(ctx, liker.ID, post.ID))
	// A second like is a no-op, not an error
	require.NoError(t, repo.Like(ctx, liker.ID, post.ID))

	liked, err = repo.IsLiked(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	got, err := repo.GetByID(ctx, post.ID, liker.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.True(t, got.Liked)

	// Another viewer sees the count but not the flag
	got, err = repo.GetByID(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.False(t, got.Liked)

	require.NoError(t, repo.Unlike(ctx, liker.ID, post.ID))
	liked, err = repo.IsLiked(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestPostRepository_SaveLifecycle(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "save_author")
	saver := newTestUser(t, "save_saver")
	post := newTestPost(t, author.ID, "bookmark me")

	require.NoError(t, repo.Save(ctx, saver.ID, post.ID))
	require.NoError(t, repo.Save(ctx, saver.ID, post.ID))

	saved, err := repo.IsSaved(ctx, saver.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	posts, err := repo.GetSavedPosts(ctx, saver.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)
	assert.True(t, posts[0].Saved)

	require.NoError(t, repo.Unsave(ctx, saver.ID, post.ID))
	posts, err = repo.GetSavedPosts(ctx, saver.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostRepository_SoftDeleteAndRestore(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "del_author")
	post := newTestPost(t, author.ID, "soon gone")

	require.NoError(t, repo.SoftDelete(ctx, post.ID))

	// Regular reads no longer see the post
	_, err := repo.GetByID(ctx, post.ID, author.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	// The tombstoned row is still reachable for restore
	tombstone, err := repo.GetByIDIncludingDeleted(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, tombstone.IsDeleted())

	require.NoError(t, repo.Restore(ctx, post.ID))
	restored, err := repo.GetByID(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	assert.Equal(t, "soon gone", restored.Content)
}

func TestPostRepository_SoftDeletedExcludedFromLists(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "list_author")
	saver := newTestUser(t, "list_saver")
	keep := newTestPost(t, author.ID, "keep me")
	gone := newTestPost(t, author.ID, "delete me")

	require.NoError(t, repo.Save(ctx, saver.ID, keep.ID))
	require.NoError(t, repo.Save(ctx, saver.ID, gone.ID))
	require.NoError(t, repo.SoftDelete(ctx, gone.ID))

	byAuthor, err := repo.GetByAuthorID(ctx, author.ID, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, keep.ID, byAuthor[0].ID)

	savedList, err := repo.GetSavedPosts(ctx, saver.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, savedList, 1)
	assert.Equal(t, keep.ID, savedList[0].ID)
}

func TestPostRepository_PermanentDelete(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "purge_author")
	liker := newTestUser(t, "purge_liker")
	post := newTestPost(t, author.ID, "purge me")

	require.NoError(t, repo.Like(ctx, liker.ID, post.ID))
	require.NoError(t, repo.Save(ctx, liker.ID, post.ID))
	require.NoError(t, testDB.Create(&models.Comment{Content: "c", UserID: liker.ID, PostID: post.ID}).Error)

	require.NoError(t, repo.PermanentDelete(ctx, post.ID))

	_, err := repo.GetByIDIncludingDeleted(ctx, post.ID)
	require.Error(t, err)

	var likeCount, bookmarkCount, commentCount int64
	testDB.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeCount)
	testDB.Model(&models.Bookmark{}).Where("post_id = ?", post.ID).Count(&bookmarkCount)
	testDB.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&commentCount)
	assert.Zero(t, likeCount)
	assert.Zero(t, bookmarkCount)
	assert.Zero(t, commentCount)
}

func TestPostRepository_Reposts(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	author := newTestUser(t, "repost_author")
	reposter := newTestUser(t, "reposter")
	original := newTestPost(t, author.ID, "original")

	repost := &models.Post{
		AuthorID:   reposter.ID,
		Content:    original.Content,
		Visibility: original.Visibility,
		RepostID:   &original.ID,
	}
	require.NoError(t, repo.Create(ctx, repost))

	// Same user reposting the same original trips the partial unique index
	dup := &models.Post{AuthorID: reposter.ID, RepostID: &original.ID}
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)

	found, err := repo.GetRepostByUser(ctx, reposter.ID, original.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, repost.ID, found.ID)

	got, err := repo.GetByID(ctx, original.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SharesCount)

	// Soft-deleted reposts no longer count as shares
	require.NoError(t, repo.SoftDelete(ctx, repost.ID))
	got, err = repo.GetByID(ctx, original.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SharesCount)
}
