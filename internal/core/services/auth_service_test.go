package services

import (
	"context"
	"testing"
	"time"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/adapters/persistence/testdb"
	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/jwt"
	"loanbook/internal/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authFixture struct {
	db     *gorm.DB
	jwt    *jwt.Manager
	tokens *TokenService
	auth   *AuthService
	users  *UserService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testdb.Open(t, models.UserTables()...)
	userRepo := repositories.NewUserRepository(db)
	refreshRepo := repositories.NewRefreshTokenRepository(db)
	tx := repositories.NewTransactor(db)
	manager := newTestJWT()

	tokens := NewTokenService(manager, refreshRepo, userRepo, tx, logging.Discard())
	return &authFixture{
		db:     db,
		jwt:    manager,
		tokens: tokens,
		auth:   NewAuthService(userRepo, tokens, logging.Discard()),
		users:  NewUserService(userRepo, refreshRepo, tx, logging.Discard()),
	}
}

func (f *authFixture) register(t *testing.T, username string, perms ...string) *models.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), &RegisterInput{
		Username:    username,
		Password:    "correct horse",
		Permissions: perms,
	})
	require.NoError(t, err)
	return user
}

func (f *authFixture) login(t *testing.T, username string) *domain.TokenPair {
	t.Helper()
	pair, err := f.auth.Login(context.Background(), &LoginInput{Username: username, Password: "correct horse"})
	require.NoError(t, err)
	return pair
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "ada", domain.PermLoanRead, domain.PermLoanRead)
	assert.NotZero(t, user.ID)
	assert.Equal(t, string(domain.RoleUser), user.Role)
	assert.Equal(t, []string{domain.PermLoanRead}, user.Permissions)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err := f.auth.Register(ctx, &RegisterInput{Username: "ada", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"blank username", RegisterInput{Username: " ", Password: "correct horse"}, domain.ErrUsernameRequired},
		{"short password", RegisterInput{Username: "bob", Password: "short"}, domain.ErrWeakPassword},
		{"unknown role", RegisterInput{Username: "bob", Password: "correct horse", Role: "ROOT"}, domain.ErrInvalidRole},
		{"unknown permission", RegisterInput{Username: "bob", Password: "correct horse", Permissions: []string{"loan:delete"}}, domain.ErrUnknownPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, &tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	officer, err := f.auth.Register(ctx, &RegisterInput{Username: "olga", Password: "correct horse", Role: "officer"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleOfficer), officer.Role)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada", domain.PermLoanRead)

	pair := f.login(t, "ada")
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 15*60, pair.ExpiresIn)

	auth, err := f.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, auth.UserID)
	assert.Equal(t, "ada", auth.Username)
	assert.True(t, Authorize(auth, domain.PermLoanRead))
	assert.False(t, Authorize(auth, domain.PermUserManage))

	_, err = f.auth.Login(context.Background(), &LoginInput{Username: "ada", Password: "wrong password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.auth.Login(context.Background(), &LoginInput{Username: "nobody", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyAccess_Errors(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.tokens.VerifyAccess("")
	assert.ErrorIs(t, err, domain.ErrTokenMissing)

	_, err = f.tokens.VerifyAccess("not.a.token")
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)

	other := jwt.NewManager("other-secret", "refresh-secret", "loanbook-test", time.Minute, time.Hour)
	forged, err := other.GenerateAccessToken(1, "eve", "ADMIN", domain.AllPermissions())
	require.NoError(t, err)
	_, err = f.tokens.VerifyAccess(forged)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidSignature)

	expiredManager := jwt.NewManager("access-secret", "refresh-secret", "loanbook-test", -time.Minute, time.Hour)
	expired, err := expiredManager.GenerateAccessToken(1, "ada", "USER", nil)
	require.NoError(t, err)
	_, err = f.tokens.VerifyAccess(expired)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada")
	pair := f.login(t, "ada")
	ctx := context.Background()

	next, err := f.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	_, err = f.tokens.VerifyAccess(next.AccessToken)
	require.NoError(t, err)

	// the presented token is spent
	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)

	// the replacement still works
	_, err = f.auth.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada")
	ctx := context.Background()

	_, err := f.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, domain.ErrTokenMissing)

	_, err = f.auth.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)

	// signed correctly but never persisted
	unknown, _, err := f.jwt.GenerateRefreshToken(user.ID, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, unknown)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)

	// signed with the access secret
	other := jwt.NewManager("x", "access-secret", "loanbook-test", time.Minute, time.Hour)
	forged, _, err := other.GenerateRefreshToken(user.ID, "abc")
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidSignature)
}

func TestRefresh_RevokedRowRejectedBeforeExpiry(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada")
	pair := f.login(t, "ada")
	ctx := context.Background()

	require.NoError(t, f.auth.Logout(ctx, pair.RefreshToken))

	_, err := f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)

	// logout is idempotent
	assert.NoError(t, f.auth.Logout(ctx, pair.RefreshToken))
}

func TestRefresh_PersistedExpiryIsAuthoritative(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada")
	pair := f.login(t, "ada")
	ctx := context.Background()

	// the row expires even though the token's own exp is days away
	f.tokens.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err := f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)
}

func TestRefresh_TokenExpiryIsNotEnforced(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada")
	ctx := context.Background()

	// a refresh token whose embedded exp has passed but whose row is live
	short := jwt.NewManager("access-secret", "refresh-secret", "loanbook-test", time.Minute, -time.Hour)
	token, _, err := short.GenerateRefreshToken(user.ID, "live-row")
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.RefreshToken{
		UserID:    user.ID,
		JTI:       "live-row",
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	_, err = f.auth.Refresh(ctx, token)
	assert.NoError(t, err)
}

func TestRefresh_OwnerMismatchRejected(t *testing.T) {
	f := newAuthFixture(t)
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")
	ctx := context.Background()

	token, _, err := f.jwt.GenerateRefreshToken(bob.ID, "ada-row")
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.RefreshToken{
		UserID:    ada.ID,
		JTI:       "ada-row",
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	_, err = f.auth.Refresh(ctx, token)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)
}

func TestLogoutAll(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada")
	first := f.login(t, "ada")
	second := f.login(t, "ada")
	ctx := context.Background()

	n, err := f.auth.LogoutAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, pair := range []*domain.TokenPair{first, second} {
		_, err := f.auth.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)
	}

	// rows are kept, only revoked
	var rows int64
	require.NoError(t, f.db.Model(&models.RefreshToken{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

func TestSweepExpired(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada")
	f.login(t, "ada")
	ctx := context.Background()

	n, err := f.tokens.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.tokens.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	n, err = f.tokens.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var row models.RefreshToken
	require.NoError(t, f.db.First(&row).Error)
	assert.True(t, row.Revoked)
	assert.NotNil(t, row.RevokedAt)
}

func TestTokenSweeper_Run(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada")
	f.login(t, "ada")
	f.tokens.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	sweeper, err := NewTokenSweeper(f.tokens, "@every 1h", logging.Discard())
	require.NoError(t, err)
	sweeper.Run()

	var revoked int64
	require.NoError(t, f.db.Model(&models.RefreshToken{}).Where("revoked = ?", true).Count(&revoked).Error)
	assert.Equal(t, int64(1), revoked)

	_, err = NewTokenSweeper(f.tokens, "not a schedule", logging.Discard())
	assert.Error(t, err)
}
