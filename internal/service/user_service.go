package service

import (
	"context"

	"devlink/internal/models"
	"devlink/internal/repository"
)

// UserService provides identity and profile business logic.
type UserService struct {
	userRepo repository.UserRepository
}

type UpdateProfileInput struct {
	UserID   uint
	FullName string
	Headline string
	Avatar   string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = clampPagination(limit, offset)
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	limit, offset = clampPagination(limit, offset)
	return s.userRepo.Search(ctx, query, limit, offset)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxNameLen = 100
	const maxHeadlineLen = 200

	if in.FullName != "" {
		if len(in.FullName) > maxNameLen {
			return nil, models.NewValidationError("Name too long (max 100 characters)")
		}
		user.FullName = in.FullName
	}
	if in.Headline != "" {
		if len(in.Headline) > maxHeadlineLen {
			return nil, models.NewValidationError("Headline too long (max 200 characters)")
		}
		user.Headline = in.Headline
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetRole changes a user's role. Only a superadmin caller may promote or
// demote, and the superadmin role itself cannot be granted this way.
func (s *UserService) SetRole(ctx context.Context, callerID, targetID uint, role models.Role) (*models.User, error) {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleSuperAdmin {
		return nil, models.NewForbiddenError("Only a superadmin can change roles")
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("Invalid role")
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, models.NewForbiddenError("Cannot change the role of a superadmin")
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetActive activates or deactivates a user account. Admin only, and admins
// cannot deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, callerID, targetID uint, active bool) (*models.User, error) {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can change account status")
	}
	if callerID == targetID && !active {
		return nil, models.NewValidationError("You cannot deactivate your own account")
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser destroys an account and cascades through everything it owns:
// posts, engagement, friendships and notifications go with it. Users may
// delete themselves; admins may delete others, but a superadmin account can
// only be removed by its own holder.
func (s *UserService) DeleteUser(ctx context.Context, callerID, targetID uint) error {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	if callerID != targetID && !caller.IsAdmin() {
		return models.NewForbiddenError("You can only delete your own account")
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleSuperAdmin && callerID != targetID {
		return models.NewForbiddenError("Cannot delete a superadmin account")
	}

	return s.userRepo.Delete(ctx, targetID)
}

// IsAdmin reports whether the user holds an admin or superadmin role.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
