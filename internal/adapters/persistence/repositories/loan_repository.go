package repositories

import (
	"context"

	"loanbook/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return conn(ctx, r.db).Create(loan).Error
}

func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := conn(ctx, r.db).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context) ([]*models.Loan, error) {
	var loans []*models.Loan
	if err := conn(ctx, r.db).Order("id ASC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) UpdateState(ctx context.Context, loan *models.Loan, version uint) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.Loan{}).
		Where("id = ? AND version = ?", loan.ID, version).
		Updates(map[string]interface{}{
			"outstanding_balance": loan.OutstandingBalance,
			"status":              loan.Status,
			"version":             version + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	loan.Version = version + 1
	return true, nil
}
