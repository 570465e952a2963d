package seed

import (
	"fmt"
	"strings"
	"time"

	"devlink/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// devTags are the hashtags sprinkled into seeded post content.
var devTags = []string{
	"golang", "rust", "typescript", "python", "react", "kubernetes",
	"postgres", "redis", "devops", "backend", "frontend", "opensource",
	"career", "remote", "startup", "ai",
}

// Factory builds realistic domain records for seeding and tests.
type Factory struct {
	db         *gorm.DB
	skipBcrypt bool

	// passwordHash is computed once; bcrypt per user makes large seeds slow.
	passwordHash string
}

// NewFactory returns a Factory. With skipBcrypt the seeded users get a
// plainly invalid password hash, which is fine for data-shape tests.
func NewFactory(db *gorm.DB, skipBcrypt bool) (*Factory, error) {
	gofakeit.Seed(time.Now().UnixNano())

	f := &Factory{db: db, skipBcrypt: skipBcrypt}
	if skipBcrypt {
		f.passwordHash = "seeded-not-a-real-hash"
		return f, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	f.passwordHash = string(hash)
	return f, nil
}

// BuildUser returns an unsaved user with fake profile data.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Email:    gofakeit.Email(),
		Password: f.passwordHash,
		FullName: gofakeit.Name(),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Headline: fmt.Sprintf("%s at %s", gofakeit.JobTitle(), gofakeit.Company()),
		Role:     models.RoleUser,
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create seeded user: %w", err)
	}
	return user, nil
}

// BuildPost returns an unsaved post authored by the given user. Roughly a
// third of posts carry media, and most carry a couple of hashtags whose
// derived form lands in Tags the same way the API does it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	content := gofakeit.Paragraph(1, 3, 8, " ")

	tagCount := gofakeit.Number(0, 3)
	tags := make([]string, 0, tagCount)
	seen := map[string]bool{}
	for i := 0; i < tagCount; i++ {
		tag := devTags[gofakeit.Number(0, len(devTags)-1)]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		content += " #" + tag
	}

	post := &models.Post{
		AuthorID:   author.ID,
		Content:    content,
		Tags:       strings.Join(tags, ","),
		Visibility: "public",
	}

	if gofakeit.Number(0, 2) == 0 {
		post.Media = []models.PostMedia{{
			URL:      fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
			Kind:     models.MediaKindImage,
			Position: 0,
		}}
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists a post.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.db.Create(post).Error; err != nil {
		return nil, fmt.Errorf("create seeded post: %w", err)
	}
	return post, nil
}

// BuildComment returns an unsaved comment on the post.
func (f *Factory) BuildComment(user *models.User, post *models.Post) *models.Comment {
	return &models.Comment{
		Content: gofakeit.Sentence(gofakeit.Number(4, 14)),
		UserID:  user.ID,
		PostID:  post.ID,
	}
}
