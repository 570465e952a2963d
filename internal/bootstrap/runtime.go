// Package bootstrap wires up process-level runtime dependencies.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"devlink/internal/cache"
	"devlink/internal/config"
	"devlink/internal/database"
	"devlink/internal/models"
	"devlink/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data. The
// Redis client may come back nil when Redis is unreachable; callers run
// without caching in that case.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDemoData {
		seeder, err := seed.NewSeeder(db, seed.Options{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build seeder: %w", err)
		}
		if err := seeder.Run(); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// devRootIdentity fills config gaps with defaults and validates the password.
func devRootIdentity(cfg *config.Config) (email, fullName, password string, err error) {
	email = strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@devlink.local"
	}
	fullName = strings.TrimSpace(cfg.DevRootFullName)
	if fullName == "" {
		fullName = "DevLink Root"
	}
	if cfg.DevRootPassword == "" {
		return "", "", "", fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	return email, fullName, cfg.DevRootPassword, nil
}

// ensureDevRootAdmin guarantees user ID 1 exists as an active super admin in
// development when DEV_BOOTSTRAP_ROOT is enabled. Existing credentials are
// left alone unless DEV_ROOT_FORCE_CREDENTIALS is set.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	email, fullName, password, err := devRootIdentity(cfg)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:       1,
				Email:    email,
				Password: string(hashed),
				FullName: fullName,
				Role:     models.RoleSuperAdmin,
				IsActive: true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"role": models.RoleSuperAdmin, "is_active": true}
			if cfg.DevRootForceCredentials {
				updates["email"] = email
				updates["full_name"] = fullName
				updates["password"] = string(hashed)
			}
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
				return err
			}
		}
		return syncUsersSequence(tx)
	})
	if err != nil {
		return err
	}

	log.Printf("development root admin bootstrap ensured for user ID 1 (%s)", email)
	return nil
}

// syncUsersSequence keeps the users ID sequence ahead of the explicit ID 1
// insert. Only PostgreSQL has a sequence to fix up.
func syncUsersSequence(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	err := tx.Exec(`
		SELECT setval(
			pg_get_serial_sequence('users', 'id'),
			GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
			true
		)
	`).Error
	if err != nil {
		return fmt.Errorf("failed to reset users sequence: %w", err)
	}
	return nil
}
