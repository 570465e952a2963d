package service

import (
	"context"
	"fmt"
	"log/slog"

	"devlink/internal/middleware"
	"devlink/internal/models"
	"devlink/internal/repository"
)

// CommentService provides comment business logic.
type CommentService struct {
	commentRepo   repository.CommentRepository
	postRepo      repository.PostRepository
	notifications NotificationSink
	events        EventPublisher
	isAdmin       func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	notifications NotificationSink,
	events EventPublisher,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo:   commentRepo,
		postRepo:      postRepo,
		notifications: notifications,
		events:        events,
		isAdmin:       isAdmin,
	}
}

const maxCommentLen = 2000

// CreateComment adds a comment to a post. Commenting on a deleted post fails
// with not found. The comment comes back with its author loaded so clients
// can render the sender without another lookup.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, err
	}

	content := sanitizeContent(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", maxCommentLen))
	}

	comment := &models.Comment{
		Content: content,
		UserID:  in.UserID,
		PostID:  in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if post.AuthorID != in.UserID && s.notifications != nil {
		s.notifications.Notify(ctx, &models.Notification{
			RecipientID: post.AuthorID,
			SenderID:    &in.UserID,
			Type:        models.NotificationComment,
			Content:     fmt.Sprintf("%s commented on your post", comment.User.FullName),
			Link:        fmt.Sprintf("/posts/%d", in.PostID),
		})
	}

	s.broadcast(ctx, in.PostID, "comment", comment)

	return comment, nil
}

// broadcast publishes a post room event. Best effort, same as notifications,
// but failures are logged and counted.
func (s *CommentService) broadcast(ctx context.Context, postID uint, event string, payload any) {
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

// ListComments lists a post's comments, newest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	limit, offset = clampPagination(limit, offset)
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}

// DeleteComment removes a comment. The comment's author, the post's author
// and admins may delete.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	allowed := comment.UserID == in.UserID
	if !allowed {
		if post, postErr := s.postRepo.GetByID(ctx, comment.PostID, 0); postErr == nil && post.AuthorID == in.UserID {
			allowed = true
		}
	}
	if !allowed && s.isAdmin != nil {
		if admin, adminErr := s.isAdmin(ctx, in.UserID); adminErr == nil && admin {
			allowed = true
		}
	}
	if !allowed {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}

	return comment, nil
}
