package config

import (
	"context"
	"errors"
	"log/slog"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db     *gorm.DB
	admin  AdminConfig
	logger *slog.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, admin AdminConfig, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, admin: admin, logger: logger}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	s.logger.Info("running database seeders")

	if err := s.seedAdminUser(ctx); err != nil {
		return err
	}

	s.logger.Info("database seeding completed")
	return nil
}

// seedAdminUser creates the configured administrator with every permission.
// Nothing happens when no admin is configured or the username is taken.
func (s *Seeder) seedAdminUser(ctx context.Context) error {
	if s.admin.Username == "" || s.admin.Password == "" {
		s.logger.Warn("admin seed skipped: ADMIN_USERNAME or ADMIN_PASSWORD not set")
		return nil
	}
	if !password.ValidatePassword(s.admin.Password) {
		return domain.ErrWeakPassword
	}

	db := s.db.WithContext(ctx)

	var existing models.User
	err := db.Where("username = ?", s.admin.Username).First(&existing).Error
	if err == nil {
		s.logger.Info("admin user already exists", slog.String("username", existing.Username))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash(s.admin.Password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     s.admin.Username,
		PasswordHash: hashed,
		Role:         string(domain.RoleAdmin),
		Permissions:  domain.AllPermissions(),
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	s.logger.Info("admin user created", slog.String("username", admin.Username))
	return nil
}
