package services

import (
	"context"
	"testing"

	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestListUsers(t *testing.T) {
	f := newAuthFixture(t)
	for _, name := range []string{"ada", "bob", "cyd"} {
		f.register(t, name)
	}
	ctx := context.Background()

	page, err := f.users.ListUsers(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "ada", page.Users[0].Username)

	page, err = f.users.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "cyd", page.Users[0].Username)
}

func TestUpdateUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada")
	ctx := context.Background()

	perms := []string{domain.PermReportRead}
	updated, err := f.users.UpdateUser(ctx, user.ID, &UpdateUserInput{
		Password:    strPtr("a better secret"),
		Role:        strPtr("admin"),
		Permissions: &perms,
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleAdmin), updated.Role)

	stored, err := f.users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.PermReportRead}, stored.Permissions)
	assert.True(t, password.Verify("a better secret", stored.PasswordHash))

	_, err = f.users.UpdateUser(ctx, user.ID, &UpdateUserInput{Password: strPtr("short")})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	bad := []string{"loan:destroy"}
	_, err = f.users.UpdateUser(ctx, user.ID, &UpdateUserInput{Permissions: &bad})
	assert.ErrorIs(t, err, domain.ErrUnknownPermission)

	_, err = f.users.UpdateUser(ctx, 999, &UpdateUserInput{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.register(t, "root", domain.PermUserManage)
	user := f.register(t, "ada")
	pair := f.login(t, "ada")
	ctx := context.Background()

	assert.ErrorIs(t, f.users.DeleteUser(ctx, admin.ID, admin.ID), domain.ErrCannotDeleteSelf)
	assert.ErrorIs(t, f.users.DeleteUser(ctx, admin.ID, 999), domain.ErrUserNotFound)

	require.NoError(t, f.users.DeleteUser(ctx, admin.ID, user.ID))

	_, err := f.users.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRejected)
}

func TestMe_CountsActiveSessions(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada")
	ctx := context.Background()

	me, err := f.users.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", me.Username)
	assert.Zero(t, me.ActiveSessions)

	first := f.login(t, "ada")
	f.login(t, "ada")

	me, err = f.users.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), me.ActiveSessions)

	require.NoError(t, f.auth.Logout(ctx, first.RefreshToken))
	me, err = f.users.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), me.ActiveSessions)

	_, err = f.users.Me(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestPermissionsFor(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ada", domain.PermLoanRead, domain.PermLoanCreate)

	perms, err := f.users.PermissionsFor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.PermLoanRead, domain.PermLoanCreate}, perms)

	_, err = f.users.PermissionsFor(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
