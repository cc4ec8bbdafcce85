package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/password"

	"gorm.io/gorm"
)

// AuthService handles registration, login and session lifecycle
type AuthService struct {
	userRepo repositories.UserRepository
	tokens   *TokenService
	logger   *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a user and returns it
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	// 1. Validate input
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, domain.ErrUsernameRequired
	}
	if !password.ValidatePassword(input.Password) {
		return nil, domain.ErrWeakPassword
	}
	role, err := normalizeRole(input.Role)
	if err != nil {
		return nil, err
	}
	perms, err := normalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	// 2. Check if username already exists
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	// 3. Hash password
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Create user
	user := &models.User{
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		Permissions:  perms,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)), slog.String("username", user.Username))
	return user, nil
}

// Login authenticates a user and issues a token pair
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*domain.TokenPair, error) {
	// 1. Find user by username
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password
	if !password.Verify(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Issue tokens
	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// Logout revokes one refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	n, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("all sessions revoked", slog.Uint64("user_id", uint64(userID)), slog.Int64("count", n))
	return n, nil
}

func normalizeRole(role string) (string, error) {
	switch domain.Role(strings.ToUpper(strings.TrimSpace(role))) {
	case "":
		return string(domain.RoleUser), nil
	case domain.RoleUser, domain.RoleOfficer, domain.RoleAdmin:
		return strings.ToUpper(strings.TrimSpace(role)), nil
	}
	return "", domain.ErrInvalidRole
}

func normalizePermissions(perms []string) ([]string, error) {
	known := make(map[string]bool)
	for _, p := range domain.AllPermissions() {
		known[p] = true
	}

	out := make([]string, 0, len(perms))
	seen := make(map[string]bool)
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if !known[p] {
			return nil, domain.ErrUnknownPermission
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
