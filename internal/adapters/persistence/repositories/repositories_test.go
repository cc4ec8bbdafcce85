package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLoan(t *testing.T, db *gorm.DB) *models.Loan {
	t.Helper()
	ctx := context.Background()

	borrower := &models.Borrower{Name: "Ada", ContactInfo: "ada@example.com", CreditScore: 710}
	require.NoError(t, NewBorrowerRepository(db).Create(ctx, borrower))

	loan := &models.Loan{
		BorrowerID:         borrower.ID,
		Amount:             decimal.NewFromInt(1000),
		InterestRate:       decimal.RequireFromString("0.12"),
		Term:               12,
		StartDate:          "2024-01-15",
		Status:             "active",
		OutstandingBalance: decimal.NewFromInt(500),
		Version:            1,
	}
	require.NoError(t, NewLoanRepository(db).Create(ctx, loan))
	return loan
}

func TestLoanRepository_UpdateStateChecksVersion(t *testing.T) {
	db := testdb.Open(t, models.LoanTables()...)
	repo := NewLoanRepository(db)
	ctx := context.Background()
	loan := seedLoan(t, db)

	loan.OutstandingBalance = decimal.NewFromInt(405)
	ok, err := repo.UpdateState(ctx, loan, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(2), loan.Version)

	stale := *loan
	stale.OutstandingBalance = decimal.NewFromInt(300)
	ok, err = repo.UpdateState(ctx, &stale, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(405).Equal(stored.OutstandingBalance))
	assert.Equal(t, uint(2), stored.Version)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := testdb.Open(t, models.LoanTables()...)
	tx := NewTransactor(db)
	borrowers := NewBorrowerRepository(db)
	ctx := context.Background()

	errAbort := errors.New("abort")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, borrowers.Create(ctx, &models.Borrower{Name: "Tmp", ContactInfo: "tmp@example.com"}))
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = borrowers.GetByContactInfo(ctx, "tmp@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRefreshTokenRepository_Revocation(t *testing.T) {
	db := testdb.Open(t, models.UserTables()...)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()
	now := time.Now()

	live := &models.RefreshToken{UserID: 1, JTI: "live", ExpiresAt: now.Add(time.Hour)}
	expired := &models.RefreshToken{UserID: 1, JTI: "expired", ExpiresAt: now.Add(-time.Hour)}
	other := &models.RefreshToken{UserID: 2, JTI: "other", ExpiresAt: now.Add(time.Hour)}
	for _, tok := range []*models.RefreshToken{live, expired, other} {
		require.NoError(t, repo.Create(ctx, tok))
	}

	swept, err := repo.RevokeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	row, err := repo.GetByJTI(ctx, "expired")
	require.NoError(t, err)
	assert.True(t, row.Revoked)
	assert.NotNil(t, row.RevokedAt)

	count, err := repo.CountActiveByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	revoked, err := repo.RevokeAllByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)

	ok, err := repo.RevokeByJTI(ctx, "live")
	require.NoError(t, err)
	assert.False(t, ok, "already revoked")

	ok, err = repo.RevokeByJTI(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepository_DeleteMissing(t *testing.T) {
	db := testdb.Open(t, models.UserTables()...)

	err := NewUserRepository(db).Delete(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
