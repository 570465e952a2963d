package service

import (
	"context"
	"strings"
	"testing"

	"devlink/internal/models"
)

func TestUserServiceSetRoleRequiresSuperadmin(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleAdmin, IsActive: true}, nil
	}

	svc := NewUserService(users)
	_, err := svc.SetRole(context.Background(), 1, 2, models.RoleAdmin)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestUserServiceSetRoleCannotGrantSuperadmin(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 1 {
			return &models.User{ID: id, Role: models.RoleSuperAdmin, IsActive: true}, nil
		}
		return &models.User{ID: id, Role: models.RoleUser, IsActive: true}, nil
	}

	svc := NewUserService(users)
	_, err := svc.SetRole(context.Background(), 1, 2, models.RoleSuperAdmin)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestUserServiceSetRoleCannotDemoteSuperadmin(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleSuperAdmin, IsActive: true}, nil
	}

	svc := NewUserService(users)
	_, err := svc.SetRole(context.Background(), 1, 2, models.RoleUser)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestUserServiceSetRolePromotes(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 1 {
			return &models.User{ID: id, Role: models.RoleSuperAdmin, IsActive: true}, nil
		}
		return &models.User{ID: id, Role: models.RoleUser, IsActive: true}, nil
	}
	var updated *models.User
	users.updateFn = func(_ context.Context, user *models.User) error {
		updated = user
		return nil
	}

	svc := NewUserService(users)
	if _, err := svc.SetRole(context.Background(), 1, 2, models.RoleAdmin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil || updated.Role != models.RoleAdmin {
		t.Fatalf("expected target promoted to admin, got %#v", updated)
	}
}

func TestUserServiceSetActiveRequiresAdmin(t *testing.T) {
	svc := NewUserService(noopUserRepo())
	_, err := svc.SetActive(context.Background(), 1, 2, false)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestUserServiceSetActiveNoSelfDeactivate(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleAdmin, IsActive: true}, nil
	}

	svc := NewUserService(users)
	_, err := svc.SetActive(context.Background(), 1, 1, false)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestUserServiceUpdateProfileNameTooLong(t *testing.T) {
	svc := NewUserService(noopUserRepo())
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:   1,
		FullName: strings.Repeat("a", 101),
	})
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}

func TestUserServiceUpdateProfileKeepsUnsetFields(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, FullName: "Old Name", Headline: "Old headline", IsActive: true}, nil
	}

	svc := NewUserService(users)
	user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Headline: "New headline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.FullName != "Old Name" {
		t.Fatalf("expected name untouched, got %q", user.FullName)
	}
	if user.Headline != "New headline" {
		t.Fatalf("expected headline updated, got %q", user.Headline)
	}
}

func TestUserServiceDeleteForbiddenForOtherUser(t *testing.T) {
	svc := NewUserService(noopUserRepo())
	err := svc.DeleteUser(context.Background(), 1, 2)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestUserServiceDeleteSuperadminOnlyBySelf(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 1 {
			return &models.User{ID: id, Role: models.RoleAdmin, IsActive: true}, nil
		}
		return &models.User{ID: id, Role: models.RoleSuperAdmin, IsActive: true}, nil
	}

	svc := NewUserService(users)
	err := svc.DeleteUser(context.Background(), 1, 2)
	assertAppErrCode(t, err, "FORBIDDEN")
}

func TestUserServiceDeleteSelf(t *testing.T) {
	users := noopUserRepo()
	var deletedID uint
	users.deleteFn = func(_ context.Context, id uint) error {
		deletedID = id
		return nil
	}

	svc := NewUserService(users)
	if err := svc.DeleteUser(context.Background(), 3, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != 3 {
		t.Fatalf("expected user 3 deleted, got %d", deletedID)
	}
}

func TestUserServiceDeleteByAdmin(t *testing.T) {
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 1 {
			return &models.User{ID: id, Role: models.RoleAdmin, IsActive: true}, nil
		}
		return &models.User{ID: id, Role: models.RoleUser, IsActive: true}, nil
	}
	var deletedID uint
	users.deleteFn = func(_ context.Context, id uint) error {
		deletedID = id
		return nil
	}

	svc := NewUserService(users)
	if err := svc.DeleteUser(context.Background(), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != 2 {
		t.Fatalf("expected user 2 deleted, got %d", deletedID)
	}
}

func TestUserServiceSearchRequiresQuery(t *testing.T) {
	svc := NewUserService(noopUserRepo())
	_, err := svc.SearchUsers(context.Background(), "", 10, 0)
	assertAppErrCode(t, err, "VALIDATION_ERROR")
}
