package repositories

import (
	"context"

	"loanbook/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

type repaymentRepository struct {
	db *gorm.DB
}

// NewRepaymentRepository creates a new collection ledger repository
func NewRepaymentRepository(db *gorm.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) Create(ctx context.Context, repayment *models.Repayment) error {
	return conn(ctx, r.db).Create(repayment).Error
}

// ListByLoanID returns the ledger of one loan, oldest first
func (r *repaymentRepository) ListByLoanID(ctx context.Context, loanID uint) ([]*models.Repayment, error) {
	var repayments []*models.Repayment
	err := conn(ctx, r.db).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&repayments).Error
	if err != nil {
		return nil, err
	}
	return repayments, nil
}
