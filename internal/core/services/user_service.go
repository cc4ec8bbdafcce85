package services

import (
	"context"
	"errors"
	"log/slog"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/password"

	"gorm.io/gorm"
)

// UserService handles user management business logic
type UserService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	tx               repositories.Transactor
	logger           *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tx:               tx,
		logger:           logger,
	}
}

// MeOutput is the caller's profile with the number of sessions that can
// still be refreshed
type MeOutput struct {
	*models.UserResponse
	ActiveSessions int64 `json:"active_sessions"`
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Total int64                  `json:"total"`
}

// UpdateUserInput carries the fields an administrator may change
type UpdateUserInput struct {
	Password    *string   `json:"password"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
}

// ListUsers lists users with offset pagination
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) (*ListUsersOutput, error) {
	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	out := &ListUsersOutput{
		Users: make([]*models.UserResponse, 0, len(users)),
		Total: total,
	}
	for _, u := range users {
		out.Users = append(out.Users, u.ToResponse())
	}
	return out, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Me returns the profile of userID and its count of unrevoked, unexpired
// refresh tokens
func (s *UserService) Me(ctx context.Context, userID uint) (*MeOutput, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := s.refreshTokenRepo.CountActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeOutput{UserResponse: user.ToResponse(), ActiveSessions: active}, nil
}

// UpdateUser applies input to user id
func (s *UserService) UpdateUser(ctx context.Context, id uint, input *UpdateUserInput) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Password != nil {
		if !password.ValidatePassword(*input.Password) {
			return nil, domain.ErrWeakPassword
		}
		hashed, err := password.Hash(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}
	if input.Role != nil {
		role, err := normalizeRole(*input.Role)
		if err != nil {
			return nil, err
		}
		user.Role = role
	}
	if input.Permissions != nil {
		perms, err := normalizePermissions(*input.Permissions)
		if err != nil {
			return nil, err
		}
		user.Permissions = perms
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// DeleteUser removes user id and revokes its refresh tokens in one
// transaction. The refresh rows themselves are kept.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return domain.ErrCannotDeleteSelf
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.refreshTokenRepo.RevokeAllByUserID(ctx, id); err != nil {
			return err
		}
		return s.userRepo.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	s.logger.Info("user deleted", slog.Uint64("user_id", uint64(id)), slog.Uint64("by", uint64(actorID)))
	return nil
}

// PermissionsFor loads the stored permission set of userID. The auth
// middleware uses it when a token carries no permissions.
func (s *UserService) PermissionsFor(ctx context.Context, userID uint) ([]string, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Permissions, nil
}
