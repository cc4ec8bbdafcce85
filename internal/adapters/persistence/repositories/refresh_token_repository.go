package repositories

import (
	"context"
	"time"

	"loanbook/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// refreshTokenRepository implements RefreshTokenRepository interface
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create creates a new refresh token
func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return conn(ctx, r.db).Create(token).Error
}

// GetByJTI gets a refresh token row by its jti, revoked or not
func (r *refreshTokenRepository) GetByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := conn(ctx, r.db).Where("jti = ?", jti).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeByJTI revokes the row with jti. It reports false when no usable row
// matched.
func (r *refreshTokenRepository) RevokeByJTI(ctx context.Context, jti string) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Where("revoked = ?", false).
		Updates(revokedNow())
	return result.RowsAffected > 0, result.Error
}

// RevokeAllByUserID revokes all refresh tokens for a user
func (r *refreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID uint) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Where("revoked = ?", false).
		Updates(revokedNow())
	return result.RowsAffected, result.Error
}

// RevokeExpired marks every expired, unrevoked row revoked (sweep job)
func (r *refreshTokenRepository) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("expires_at <= ?", now).
		Where("revoked = ?", false).
		Updates(revokedNow())
	return result.RowsAffected, result.Error
}

// CountActiveByUserID counts active tokens for a user
func (r *refreshTokenRepository) CountActiveByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Where("revoked = ?", false).
		Where("expires_at > ?", time.Now()).
		Count(&count).Error
	return count, err
}

func revokedNow() map[string]interface{} {
	return map[string]interface{}{
		"revoked":    true,
		"revoked_at": time.Now(),
	}
}
