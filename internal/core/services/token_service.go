package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/jwt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessVerifier verifies access tokens without touching any store. Every
// service builds one from the shared signing secret.
type AccessVerifier struct {
	tokens *jwt.Manager
}

// NewAccessVerifier creates an access verifier
func NewAccessVerifier(tokens *jwt.Manager) *AccessVerifier {
	return &AccessVerifier{tokens: tokens}
}

// VerifyAccess checks signature and expiry of token and returns the caller's
// identity.
func (v *AccessVerifier) VerifyAccess(token string) (domain.AuthContext, error) {
	if token == "" {
		return domain.AuthContext{}, domain.ErrTokenMissing
	}

	claims, err := v.tokens.ValidateAccessToken(token)
	if err != nil {
		return domain.AuthContext{}, tokenError(err)
	}

	return domain.AuthContext{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Token:       token,
	}, nil
}

// Authorize reports whether auth carries permission
func Authorize(auth domain.AuthContext, permission string) bool {
	return auth.HasPermission(permission)
}

// TokenService issues, rotates and revokes token pairs
type TokenService struct {
	*AccessVerifier
	tokens           *jwt.Manager
	refreshTokenRepo repositories.RefreshTokenRepository
	userRepo         repositories.UserRepository
	tx               repositories.Transactor
	logger           *slog.Logger
	now              func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(
	tokens *jwt.Manager,
	refreshTokenRepo repositories.RefreshTokenRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		AccessVerifier:   NewAccessVerifier(tokens),
		tokens:           tokens,
		refreshTokenRepo: refreshTokenRepo,
		userRepo:         userRepo,
		tx:               tx,
		logger:           logger,
		now:              time.Now,
	}
}

// Issue signs a new token pair for user and persists the refresh token's jti
func (s *TokenService) Issue(ctx context.Context, user *models.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Username, user.Role, user.Permissions)
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refreshToken, expiresAt, err := s.tokens.GenerateRefreshToken(user.ID, jti)
	if err != nil {
		return nil, err
	}

	row := &models.RefreshToken{
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}
	if err := s.refreshTokenRepo.Create(ctx, row); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The token's own expiry
// is not checked: its persisted row must exist, belong to the token's user,
// be unrevoked and unexpired. The presented row is revoked (rotation).
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	// 1. Presence
	if refreshToken == "" {
		return nil, domain.ErrTokenMissing
	}

	// 2. Signature
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}

	var pair *domain.TokenPair
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 3. Persisted record is authoritative
		row, err := s.refreshTokenRepo.GetByJTI(ctx, claims.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRefreshTokenRejected
			}
			return err
		}
		if !row.IsUsable(s.now()) || row.UserID != claims.UserID {
			return domain.ErrRefreshTokenRejected
		}

		// 4. Owner must still exist
		user, err := s.userRepo.GetByID(ctx, row.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRefreshTokenRejected
			}
			return err
		}

		// 5. Rotate; losing a concurrent rotation counts as revoked
		revoked, err := s.refreshTokenRepo.RevokeByJTI(ctx, row.JTI)
		if err != nil {
			return err
		}
		if !revoked {
			return domain.ErrRefreshTokenRejected
		}

		// 6. Issue the replacement pair
		pair, err = s.Issue(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", slog.Uint64("user_id", uint64(claims.UserID)))
	return pair, nil
}

// Revoke revokes the row behind refreshToken. Unknown or already revoked
// tokens are not an error, so logout is idempotent.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrTokenMissing
	}
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return tokenError(err)
	}
	_, err = s.refreshTokenRepo.RevokeByJTI(ctx, claims.ID)
	return err
}

// RevokeAll revokes every refresh token of userID
func (s *TokenService) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	return s.refreshTokenRepo.RevokeAllByUserID(ctx, userID)
}

// SweepExpired marks refresh rows past their expiry revoked
func (s *TokenService) SweepExpired(ctx context.Context) (int64, error) {
	return s.refreshTokenRepo.RevokeExpired(ctx, s.now())
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidSignature):
		return domain.ErrTokenInvalidSignature
	default:
		return domain.ErrTokenMalformed
	}
}
