// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"

	"devlink/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// SkipBcrypt replaces password hashing with a placeholder; use in tests.
	SkipBcrypt bool
}

// Seeder populates the database with a believable social graph: users,
// friendships in both pending and accepted states, posts with likes,
// comments, bookmarks, reposts, and the notifications those would produce.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder with defaults applied.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 25
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = opts.NumUsers * 4
	}

	factory, err := NewFactory(db, opts.SkipBcrypt)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, opts: opts, factory: factory}, nil
}

// Run executes the full seeding pipeline.
func (s *Seeder) Run() error {
	if s.opts.ShouldClean {
		if err := s.clearData(); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
	}

	users, err := s.SeedSocialMesh(s.opts.NumUsers)
	if err != nil {
		return err
	}

	posts, err := s.createPosts(users, s.opts.NumPosts)
	if err != nil {
		return err
	}

	if err := s.createEngagement(users, posts); err != nil {
		return err
	}

	log.Printf("seeded %d users and %d posts", len(users), len(posts))
	return nil
}

func (s *Seeder) clearData() error {
	// Children before parents to satisfy foreign keys.
	for _, model := range []any{
		&models.Notification{},
		&models.Bookmark{},
		&models.Like{},
		&models.Comment{},
		&models.PostMedia{},
		&models.Post{},
		&models.Friendship{},
		&models.User{},
	} {
		if err := s.db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedSocialMesh creates n users and a friendship mesh over them. About half
// of the generated edges are accepted, the rest stay pending, so both states
// show up in every view that cares about them.
func (s *Seeder) SeedSocialMesh(n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			// Roughly a quarter of all pairs get an edge.
			if rand.Intn(4) != 0 {
				continue
			}

			requester, addressee := users[i], users[j]
			if rand.Intn(2) == 0 {
				requester, addressee = addressee, requester
			}

			status := models.FriendshipStatusAccepted
			if rand.Intn(2) == 0 {
				status = models.FriendshipStatusPending
			}

			friendship := models.Friendship{
				RequesterID: requester.ID,
				AddresseeID: addressee.ID,
				Status:      status,
			}
			if err := s.db.Create(&friendship).Error; err != nil {
				return nil, fmt.Errorf("create seeded friendship: %w", err)
			}

			if status == models.FriendshipStatusPending {
				if err := s.createNotification(addressee.ID, requester.ID,
					models.NotificationFriendRequest,
					fmt.Sprintf("%s sent you a friend request", requester.FullName)); err != nil {
					return nil, err
				}
			}
		}
	}

	return users, nil
}

func (s *Seeder) createPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post, err := s.factory.CreatePost(&author)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// createEngagement scatters likes, comments, bookmarks and reposts over the
// seeded posts, with notifications where the real services would emit them.
func (s *Seeder) createEngagement(users []models.User, posts []models.Post) error {
	repostedPairs := map[[2]uint]bool{}

	for _, post := range posts {
		for _, user := range users {
			if rand.Intn(5) != 0 {
				continue
			}

			like := models.Like{UserID: user.ID, PostID: post.ID}
			if err := s.db.Create(&like).Error; err != nil {
				return fmt.Errorf("create seeded like: %w", err)
			}
			if user.ID != post.AuthorID {
				if err := s.createNotification(post.AuthorID, user.ID,
					models.NotificationLike,
					fmt.Sprintf("%s liked your post", user.FullName)); err != nil {
					return err
				}
			}
		}

		commentCount := rand.Intn(4)
		for i := 0; i < commentCount; i++ {
			commenter := users[rand.Intn(len(users))]
			comment := s.factory.BuildComment(&commenter, &post)
			if err := s.db.Create(comment).Error; err != nil {
				return fmt.Errorf("create seeded comment: %w", err)
			}
			if commenter.ID != post.AuthorID {
				if err := s.createNotification(post.AuthorID, commenter.ID,
					models.NotificationComment,
					fmt.Sprintf("%s commented on your post", commenter.FullName)); err != nil {
					return err
				}
			}
		}

		if rand.Intn(6) == 0 {
			saver := users[rand.Intn(len(users))]
			bookmark := models.Bookmark{UserID: saver.ID, PostID: post.ID}
			if err := s.db.Create(&bookmark).Error; err != nil {
				return fmt.Errorf("create seeded bookmark: %w", err)
			}
		}

		if rand.Intn(8) == 0 {
			reposter := users[rand.Intn(len(users))]
			pair := [2]uint{reposter.ID, post.ID}
			if reposter.ID == post.AuthorID || repostedPairs[pair] {
				continue
			}
			repostedPairs[pair] = true

			postID := post.ID
			// Roughly half the shares carry commentary, the rest are
			// pure reposts with empty content.
			var commentary string
			if rand.Intn(2) == 0 {
				commentary = gofakeit.Sentence(6)
			}
			repost := models.Post{
				AuthorID:   reposter.ID,
				Content:    commentary,
				Visibility: post.Visibility,
				RepostID:   &postID,
			}
			if err := s.db.Create(&repost).Error; err != nil {
				return fmt.Errorf("create seeded repost: %w", err)
			}
			if err := s.createNotification(post.AuthorID, reposter.ID,
				models.NotificationRepost,
				fmt.Sprintf("%s reposted your post", reposter.FullName)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Seeder) createNotification(recipientID, senderID uint, notifType models.NotificationType, content string) error {
	sender := senderID
	notification := models.Notification{
		RecipientID: recipientID,
		SenderID:    &sender,
		Type:        notifType,
		Content:     content,
		Link:        fmt.Sprintf("/profile/%d", senderID),
		IsRead:      gofakeit.Bool(),
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("create seeded notification: %w", err)
	}
	return nil
}
