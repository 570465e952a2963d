package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"devlink/internal/middleware"
	"devlink/internal/models"
	"devlink/internal/repository"
)

// PostService provides post, like, repost, bookmark and deletion logic.
type PostService struct {
	postRepo      repository.PostRepository
	userRepo      repository.UserRepository
	notifications NotificationSink
	events        EventPublisher
	isAdmin       func(ctx context.Context, userID uint) (bool, error)
}

// MediaInput is one attachment on a new post.
type MediaInput struct {
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Thumbnail string `json:"thumbnail"`
}

type CreatePostInput struct {
	AuthorID   uint
	Content    string
	Visibility string
	Media      []MediaInput
}

type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Content    string
	Visibility string
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	notifications NotificationSink,
	events EventPublisher,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		userRepo:      userRepo,
		notifications: notifications,
		events:        events,
		isAdmin:       isAdmin,
	}
}

func (s *PostService) notify(ctx context.Context, n *models.Notification) {
	if s.notifications != nil {
		s.notifications.Notify(ctx, n)
	}
}

func (s *PostService) broadcast(ctx context.Context, postID uint, event string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPostEvent(ctx, postID, event, payload); err != nil {
		middleware.NotificationFanoutFailures.WithLabelValues("realtime").Inc()
		middleware.Logger.WarnContext(ctx, "failed to broadcast post event",
			slog.Any("post_id", postID),
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

const (
	maxContentLen    = 5000
	maxMediaPerPost  = 10
	defaultFeedLimit = 20
)

var validVisibilities = map[string]bool{
	"public":      true,
	"connections": true,
	"private":     true,
}

// sanitizeContent trims whitespace and strips control characters that have no
// business in post text. Newlines and tabs survive.
func sanitizeContent(content string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, content)
	return strings.TrimSpace(cleaned)
}

// extractHashtags collects #tags from the content, lowercased and deduplicated.
func extractHashtags(content string) []string {
	var tags []string
	seen := map[string]bool{}
	for _, field := range strings.Fields(content) {
		if !strings.HasPrefix(field, "#") || len(field) < 2 {
			continue
		}
		tag := strings.ToLower(strings.TrimFunc(field[1:], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		}))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// CreatePost validates, sanitizes and persists a new post. Media entries with
// an empty URL are dropped rather than rejected, so a partially failed client
// upload still produces a post.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := sanitizeContent(in.Content)

	var media []models.PostMedia
	for i, m := range in.Media {
		u := strings.TrimSpace(m.URL)
		if u == "" {
			continue
		}
		kind := models.MediaKind(m.Kind)
		if kind != models.MediaKindImage && kind != models.MediaKindVideo {
			kind = models.MediaKindImage
		}
		media = append(media, models.PostMedia{
			URL:       u,
			Kind:      kind,
			Thumbnail: strings.TrimSpace(m.Thumbnail),
			Position:  i,
		})
	}
	if len(media) > maxMediaPerPost {
		return nil, models.NewValidationError(fmt.Sprintf("Too many attachments (max %d)", maxMediaPerPost))
	}

	if content == "" && len(media) == 0 {
		return nil, models.NewValidationError("Post must have content or media")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxContentLen))
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = "public"
	}
	if !validVisibilities[visibility] {
		return nil, models.NewValidationError("Invalid visibility")
	}

	post := &models.Post{
		AuthorID:   in.AuthorID,
		Content:    content,
		Tags:       strings.Join(extractHashtags(content), ","),
		Visibility: visibility,
		Media:      media,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
}

// GetPost returns a single post with viewer-dependent like/save flags.
func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, currentUserID)
}

// ListFeed returns the global feed, newest first. Soft-deleted posts never
// appear.
func (s *PostService) ListFeed(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	limit, offset = clampPagination(limit, offset)
	return s.postRepo.List(ctx, limit, offset, currentUserID)
}

// GetUserPosts returns posts authored by userID.
func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	limit, offset = clampPagination(limit, offset)
	return s.postRepo.GetByAuthorID(ctx, userID, limit, offset, currentUserID)
}

// GetSavedPosts returns the user's bookmarked posts.
func (s *PostService) GetSavedPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPagination(limit, offset)
	return s.postRepo.GetSavedPosts(ctx, userID, limit, offset)
}

// SearchPosts searches post content and tags.
func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	limit, offset = clampPagination(limit, offset)
	return s.postRepo.Search(ctx, query, limit, offset, currentUserID)
}

func clampPagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// UpdatePost edits a post's content or visibility. Author only.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if in.Content != "" {
		content := sanitizeContent(in.Content)
		if len(content) > maxContentLen {
			return nil, models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxContentLen))
		}
		post.Content = content
		post.Tags = strings.Join(extractHashtags(content), ",")
	}
	if in.Visibility != "" {
		if !validVisibilities[in.Visibility] {
			return nil, models.NewValidationError("Invalid visibility")
		}
		post.Visibility = in.Visibility
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, in.PostID, in.UserID)
}

// ToggleLike likes the post if the user has not liked it, otherwise removes
// the like. Returns the refreshed post and the resulting liked state. Liking
// your own post never notifies.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, bool, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, false, err
	}

	isLiked, err := s.postRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return nil, false, err
	}

	if isLiked {
		if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
			return nil, false, err
		}
	} else {
		if err := s.postRepo.Like(ctx, userID, postID); err != nil {
			return nil, false, err
		}
		if post.AuthorID != userID {
			liker, lookupErr := s.userRepo.GetByID(ctx, userID)
			if lookupErr == nil {
				s.notify(ctx, &models.Notification{
					RecipientID: post.AuthorID,
					SenderID:    &userID,
					Type:        models.NotificationLike,
					Content:     fmt.Sprintf("%s liked your post", liker.FullName),
					Link:        fmt.Sprintf("/posts/%d", postID),
				})
			}
		}
	}

	refreshed, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, false, err
	}

	s.broadcast(ctx, postID, "like_update", map[string]any{
		"post_id":     postID,
		"likes_count": refreshed.LikesCount,
	})

	return refreshed, !isLiked, nil
}

// Repost creates a share referencing the original, carrying the actor's
// optional commentary as its content. A pure share has empty content; the
// original renders through the Repost reference. Reposting your own post, a
// deleted post, or the same post twice is rejected; a concurrent duplicate
// falls through to the unique index and comes back as a conflict.
func (s *PostService) Repost(ctx context.Context, userID, postID uint, message string) (*models.Post, error) {
	original, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if original.AuthorID == userID {
		return nil, models.NewValidationError("Cannot repost your own post")
	}

	message = sanitizeContent(message)
	if len(message) > maxContentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxContentLen))
	}

	existing, err := s.postRepo.GetRepostByUser(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("You have already reposted this post")
	}

	repost := &models.Post{
		AuthorID:   userID,
		Content:    message,
		Tags:       strings.Join(extractHashtags(message), ","),
		Visibility: original.Visibility,
		RepostID:   &original.ID,
	}
	if err := s.postRepo.Create(ctx, repost); err != nil {
		return nil, err
	}

	reposter, lookupErr := s.userRepo.GetByID(ctx, userID)
	if lookupErr == nil {
		s.notify(ctx, &models.Notification{
			RecipientID: original.AuthorID,
			SenderID:    &userID,
			Type:        models.NotificationRepost,
			Content:     fmt.Sprintf("%s reposted your post", reposter.FullName),
			Link:        fmt.Sprintf("/posts/%d", repost.ID),
			RepostID:    &repost.ID,
		})
	}

	s.broadcast(ctx, original.ID, "repost", map[string]any{
		"post_id":   original.ID,
		"repost_id": repost.ID,
	})

	return s.postRepo.GetByID(ctx, repost.ID, userID)
}

// ToggleSave bookmarks the post if not saved, otherwise removes the
// bookmark. Saving a tombstoned post is a bad request, a missing post is not
// found. Saves are private, nobody is notified.
func (s *PostService) ToggleSave(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.postRepo.GetByIDIncludingDeleted(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.IsDeleted() {
		return false, models.NewValidationError("Cannot save a deleted post")
	}

	isSaved, err := s.postRepo.IsSaved(ctx, userID, postID)
	if err != nil {
		return false, err
	}

	if isSaved {
		if err := s.postRepo.Unsave(ctx, userID, postID); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.postRepo.Save(ctx, userID, postID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostService) callerMayModerate(ctx context.Context, userID uint) bool {
	if s.isAdmin == nil {
		return false
	}
	admin, err := s.isAdmin(ctx, userID)
	return err == nil && admin
}

// SoftDeletePost tombstones a post. Author or admin only. The post drops out
// of all reads but stays restorable.
func (s *PostService) SoftDeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByIDIncludingDeleted(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID && !s.callerMayModerate(ctx, userID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if post.IsDeleted() {
		return models.NewValidationError("Post is already deleted")
	}
	return s.postRepo.SoftDelete(ctx, postID)
}

// RestorePost brings back a soft-deleted post. Author only.
func (s *PostService) RestorePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByIDIncludingDeleted(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError("You can only restore your own posts")
	}
	if !post.IsDeleted() {
		return nil, models.NewValidationError("Post is not deleted")
	}

	if err := s.postRepo.Restore(ctx, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

// PermanentDeletePost removes a post and its likes, bookmarks, comments and
// media for good. Author or admin only. Works on tombstoned posts too.
func (s *PostService) PermanentDeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByIDIncludingDeleted(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID && !s.callerMayModerate(ctx, userID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.PermanentDelete(ctx, postID)
}
