package repositories

import (
	"context"
	"time"

	"loanbook/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (*models.RefreshToken, error)
	RevokeByJTI(ctx context.Context, jti string) (bool, error)
	RevokeAllByUserID(ctx context.Context, userID uint) (int64, error)
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
	CountActiveByUserID(ctx context.Context, userID uint) (int64, error)
}

// BorrowerRepository defines borrower repository interface
type BorrowerRepository interface {
	Create(ctx context.Context, borrower *models.Borrower) error
	GetByID(ctx context.Context, id uint) (*models.Borrower, error)
	GetByContactInfo(ctx context.Context, contactInfo string) (*models.Borrower, error)
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	List(ctx context.Context) ([]*models.Loan, error)
	// UpdateState writes balance and status only if the stored version is
	// still version, bumping it. It reports whether a row was written.
	UpdateState(ctx context.Context, loan *models.Loan, version uint) (bool, error)
}

// RepaymentRepository defines the collection ledger interface
type RepaymentRepository interface {
	Create(ctx context.Context, repayment *models.Repayment) error
	ListByLoanID(ctx context.Context, loanID uint) ([]*models.Repayment, error)
}
