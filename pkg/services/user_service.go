package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
)

// UserService defines the interface for user administration.
type UserService interface {
	Create(ctx context.Context, username, password, email, role string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id int64, email, role string, isActive bool) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewUserService creates a UserService with dependencies.
func NewUserService(users repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

var _ UserService = (*userService)(nil)

func (s *userService) Create(ctx context.Context, username, password, email, role string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// Update modifies a user. Demoting or deactivating the last active admin
// is rejected.
func (s *userService) Update(ctx context.Context, id int64, email, role string, isActive bool) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	losesAdmin := user.IsAdmin() && user.IsActive && (role != models.RoleAdmin || !isActive)
	if losesAdmin {
		count, err := s.users.CountAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if count <= 1 {
			return nil, apperrors.ErrLastAdmin
		}
	}

	user.Email = email
	user.Role = role
	user.IsActive = isActive
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user. Removing yourself or the last active admin is
// rejected.
func (s *userService) Delete(ctx context.Context, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if caller, err := auth.UsernameFromContext(ctx); err == nil && caller == user.Username {
		return fmt.Errorf("cannot delete your own account: %w", apperrors.ErrConflict)
	}

	if user.IsAdmin() && user.IsActive {
		count, err := s.users.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return apperrors.ErrLastAdmin
		}
	}

	return s.users.Delete(ctx, id)
}
