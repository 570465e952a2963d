package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"devlink/internal/models"

	"gorm.io/gorm"
)

type postRepoStub struct {
	createFn                  func(context.Context, *models.Post) error
	getByIDFn                 func(context.Context, uint, uint) (*models.Post, error)
	getByIDIncludingDeletedFn func(context.Context, uint) (*models.Post, error)
	getByAuthorIDFn           func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	listFn                    func(context.Context, int, int, uint) ([]*models.Post, error)
	searchFn                  func(context.Context, string, int, int, uint) ([]*models.Post, error)
	updateFn                  func(context.Context, *models.Post) error
	softDeleteFn              func(context.Context, uint) error
	restoreFn                 func(context.Context, uint) error
	permanentDeleteFn         func(context.Context, uint) error
	isLikedFn                 func(context.Context, uint, uint) (bool, error)
	likeFn                    func(context.Context, uint, uint) error
	unlikeFn                  func(context.Context, uint, uint) error
	isSavedFn                 func(context.Context, uint, uint) (bool, error)
	saveFn                    func(context.Context, uint, uint) error
	unsaveFn                  func(context.Context, uint, uint) error
	getSavedPostsFn           func(context.Context, uint, int, int) ([]*models.Post, error)
	getRepostByUserFn         func(context.Context, uint, uint) (*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) GetByIDIncludingDeleted(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDIncludingDeletedFn(ctx, id)
}
func (s *postRepoStub) GetByAuthorID(ctx context.Context, authorID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByAuthorIDFn(ctx, authorID, limit, offset, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, currentUserID)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset, currentUserID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) SoftDelete(ctx context.Context, id uint) error { return s.softDeleteFn(ctx, id) }
func (s *postRepoStub) Restore(ctx context.Context, id uint) error    { return s.restoreFn(ctx, id) }
func (s *postRepoStub) PermanentDelete(ctx context.Context, id uint) error {
	return s.permanentDeleteFn(ctx, id)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) IsSaved(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isSavedFn(ctx, userID, postID)
}
func (s *postRepoStub) Save(ctx context.Context, userID, postID uint) error {
	return s.saveFn(ctx, userID, postID)
}
func (s *postRepoStub) Unsave(ctx context.Context, userID, postID uint) error {
	return s.unsaveFn(ctx, userID, postID)
}
func (s *postRepoStub) GetSavedPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.getSavedPostsFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) GetRepostByUser(ctx context.Context, authorID, originalID uint) (*models.Post, error) {
	return s.getRepostByUserFn(ctx, authorID, originalID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(context.Context, *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1, Content: "hello"}, nil
		},
		getByIDIncludingDeletedFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1}, nil
		},
		getByAuthorIDFn:   func(context.Context, uint, int, int, uint) ([]*models.Post, error) { return nil, nil },
		listFn:            func(context.Context, int, int, uint) ([]*models.Post, error) { return nil, nil },
		searchFn:          func(context.Context, string, int, int, uint) ([]*models.Post, error) { return nil, nil },
		updateFn:          func(context.Context, *models.Post) error { return nil },
		softDeleteFn:      func(context.Context, uint) error { return nil },
		restoreFn:         func(context.Context, uint) error { return nil },
		permanentDeleteFn: func(context.Context, uint) error { return nil },
		isLikedFn:         func(context.Context, uint, uint) (bool, error) { return false, nil },
		likeFn:            func(context.Context, uint, uint) error { return nil },
		unlikeFn:          func(context.Context, uint, uint) error { return nil },
		isSavedFn:         func(context.Context, uint, uint) (bool, error) { return false, nil },
		saveFn:            func(context.Context, uint, uint) error { return nil },
		unsaveFn:          func(context.Context, uint, uint) error { return nil },
		getSavedPostsFn:   func(context.Context, uint, int, int) ([]*models.Post, error) { return nil, nil },
		getRepostByUserFn: func(context.Context, uint, uint) (*models.Post, error) { return nil, nil },
	}
}

func alwaysAdmin(context.Context, uint) (bool, error) { return true, nil }
func neverAdmin(context.Context, uint) (bool, error)  { return false, nil }

func TestPostServiceCreatePostRequiresContentOrMedia(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{AuthorID: 1, Content: "   "})
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestPostServiceCreatePostMediaOnly(t *testing.T) {
	repo := noopPostRepo()
	var created *models.Post
	repo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 7
		created = post
		return nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Media: []MediaInput{
			{URL: ""},
			{URL: "https://cdn.example.com/a.png", Kind: "bogus"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created.Media) != 1 {
		t.Fatalf("expected empty media dropped, got %d entries", len(created.Media))
	}
	if created.Media[0].Kind != models.MediaKindImage {
		t.Fatalf("expected unknown media kind to default to image, got %q", created.Media[0].Kind)
	}
}

func TestPostServiceCreatePostExtractsHashtags(t *testing.T) {
	repo := noopPostRepo()
	var created *models.Post
	repo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 7
		created = post
		return nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Content:  "Shipping #GoLang today, more #golang soon #dev!",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Tags != "golang,dev" {
		t.Fatalf("expected deduplicated lowercase tags, got %q", created.Tags)
	}
}

func TestPostServiceCreatePostInvalidVisibility(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{AuthorID: 1, Content: "hi", Visibility: "secret"})
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestPostServiceToggleLikeNotifiesAuthor(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 1}, nil
	}

	sink := &sinkRecorder{}
	svc := NewPostService(repo, noopUserRepo(), sink, nil, neverAdmin)
	_, liked, err := svc.ToggleLike(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !liked {
		t.Fatal("expected liked to be true")
	}
	if len(sink.notifications) != 1 || sink.notifications[0].Type != models.NotificationLike {
		t.Fatalf("expected one like notification, got %#v", sink.notifications)
	}
	if sink.notifications[0].RecipientID != 1 {
		t.Fatalf("expected author notified, got recipient %d", sink.notifications[0].RecipientID)
	}
}

func TestPostServiceToggleLikeSelfIsSilent(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 2}, nil
	}

	sink := &sinkRecorder{}
	svc := NewPostService(repo, noopUserRepo(), sink, nil, neverAdmin)
	if _, _, err := svc.ToggleLike(context.Background(), 2, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.notifications) != 0 {
		t.Fatalf("liking your own post must not notify, got %d", len(sink.notifications))
	}
}

func TestPostServiceToggleLikeUnlikeIsSilent(t *testing.T) {
	repo := noopPostRepo()
	repo.isLikedFn = func(context.Context, uint, uint) (bool, error) { return true, nil }

	sink := &sinkRecorder{}
	events := &eventsRecorder{}
	svc := NewPostService(repo, noopUserRepo(), sink, events, neverAdmin)
	_, liked, err := svc.ToggleLike(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if liked {
		t.Fatal("expected liked to be false after unlike")
	}
	if len(sink.notifications) != 0 {
		t.Fatalf("unlike must not notify, got %d", len(sink.notifications))
	}
	if len(events.postEvents) != 1 || events.postEvents[0] != "like_update" {
		t.Fatalf("expected a like_update broadcast, got %v", events.postEvents)
	}
}

func TestPostServiceRepostOwnPost(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 2}, nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.Repost(context.Background(), 2, 10, "")
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestPostServiceRepostDuplicate(t *testing.T) {
	repo := noopPostRepo()
	repo.getRepostByUserFn = func(context.Context, uint, uint) (*models.Post, error) {
		return &models.Post{ID: 99}, nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.Repost(context.Background(), 2, 10, "")
	assertAppErrCode(t, err, "CONFLICT")
}

func TestPostServiceRepostCarriesActorMessage(t *testing.T) {
	repo := noopPostRepo()
	originalID := uint(10)
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		if id == originalID {
			return &models.Post{ID: id, AuthorID: 1, Content: "original", Tags: "golang"}, nil
		}
		return &models.Post{ID: id, AuthorID: 2, RepostID: &originalID}, nil
	}
	var created *models.Post
	repo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 42
		created = post
		return nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	if _, err := svc.Repost(context.Background(), 2, originalID, "nice #golang"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Content != "nice #golang" {
		t.Fatalf("expected the actor's message as content, got %q", created.Content)
	}
	if created.Tags != "golang" {
		t.Fatalf("expected tags derived from the message, got %q", created.Tags)
	}
}

func TestPostServiceRepostPureShareHasEmptyContent(t *testing.T) {
	repo := noopPostRepo()
	originalID := uint(10)
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		if id == originalID {
			return &models.Post{ID: id, AuthorID: 1, Content: "original", Tags: "golang"}, nil
		}
		return &models.Post{ID: id, AuthorID: 2, RepostID: &originalID}, nil
	}
	var created *models.Post
	repo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 42
		created = post
		return nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	if _, err := svc.Repost(context.Background(), 2, originalID, "   "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Content != "" || created.Tags != "" {
		t.Fatalf("a pure share must not duplicate the original's text, got %#v", created)
	}
	if len(created.Media) != 0 {
		t.Fatalf("a pure share must not duplicate the original's media, got %d entries", len(created.Media))
	}
}

func TestPostServiceRepostMessageTooLong(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.Repost(context.Background(), 2, 10, strings.Repeat("a", maxContentLen+1))
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestPostServiceRepostNotifiesOriginalAuthor(t *testing.T) {
	repo := noopPostRepo()
	originalID := uint(10)
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		if id == originalID {
			return &models.Post{ID: id, AuthorID: 1, Content: "original", Tags: "golang"}, nil
		}
		return &models.Post{ID: id, AuthorID: 2, RepostID: &originalID}, nil
	}
	var created *models.Post
	repo.createFn = func(_ context.Context, post *models.Post) error {
		post.ID = 42
		created = post
		return nil
	}

	sink := &sinkRecorder{}
	events := &eventsRecorder{}
	svc := NewPostService(repo, noopUserRepo(), sink, events, neverAdmin)
	if _, err := svc.Repost(context.Background(), 2, originalID, "nice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.RepostID == nil || *created.RepostID != originalID {
		t.Fatalf("expected repost to reference original, got %#v", created.RepostID)
	}
	if len(sink.notifications) != 1 || sink.notifications[0].Type != models.NotificationRepost {
		t.Fatalf("expected one repost notification, got %#v", sink.notifications)
	}
	if len(events.postEvents) != 1 || events.postEvents[0] != "repost" {
		t.Fatalf("expected a repost broadcast, got %v", events.postEvents)
	}
}

func TestPostServiceToggleSaveMissingPost(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDIncludingDeletedFn = func(_ context.Context, id uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.ToggleSave(context.Background(), 2, 10)
	assertAppErrCode(t, err, "NOT_FOUND")
}

func TestPostServiceToggleSaveDeletedPost(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDIncludingDeletedFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 2, DeletedAt: gorm.DeletedAt{Time: time.Now(), Valid: true}}, nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.ToggleSave(context.Background(), 2, 10)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestPostServiceToggleSaveIsSilent(t *testing.T) {
	sink := &sinkRecorder{}
	svc := NewPostService(noopPostRepo(), noopUserRepo(), sink, nil, neverAdmin)

	saved, err := svc.ToggleSave(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !saved {
		t.Fatal("expected saved to be true")
	}
	if len(sink.notifications) != 0 {
		t.Fatalf("saves are private, got %d notifications", len(sink.notifications))
	}
}

func TestPostServiceSoftDeleteForbidden(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	err := svc.SoftDeletePost(context.Background(), 2, 10)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestPostServiceSoftDeleteByAdmin(t *testing.T) {
	repo := noopPostRepo()
	deleted := false
	repo.softDeleteFn = func(context.Context, uint) error {
		deleted = true
		return nil
	}

	svc := NewPostService(repo, noopUserRepo(), nil, nil, alwaysAdmin)
	if err := svc.SoftDeletePost(context.Background(), 2, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatal("expected admin to soft delete")
	}
}

func TestPostServiceRestoreNotDeleted(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.RestorePost(context.Background(), 1, 10)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestPostServiceRestoreForbiddenForNonAuthor(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, alwaysAdmin)
	_, err := svc.RestorePost(context.Background(), 2, 10)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestPostServicePermanentDeleteForbidden(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	err := svc.PermanentDeletePost(context.Background(), 2, 10)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestPostServiceUpdateForbiddenForNonAuthor(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 2, PostID: 10, Content: "edit"})
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestPostServiceSearchRequiresQuery(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), nil, nil, neverAdmin)
	_, err := svc.SearchPosts(context.Background(), "  ", 10, 0, 1)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestSanitizeContentStripsControlCharacters(t *testing.T) {
	got := sanitizeContent("hello\x00 world\nline\ttab\x07 ")
	want := "hello world\nline\ttab"
	if got != want {
		t.Fatalf("sanitizeContent = %q, want %q", got, want)
	}
}
