package repositories

import (
	"context"

	"loanbook/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

type borrowerRepository struct {
	db *gorm.DB
}

// NewBorrowerRepository creates a new borrower repository
func NewBorrowerRepository(db *gorm.DB) BorrowerRepository {
	return &borrowerRepository{db: db}
}

func (r *borrowerRepository) Create(ctx context.Context, borrower *models.Borrower) error {
	return conn(ctx, r.db).Create(borrower).Error
}

func (r *borrowerRepository) GetByID(ctx context.Context, id uint) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := conn(ctx, r.db).First(&borrower, id).Error; err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *borrowerRepository) GetByContactInfo(ctx context.Context, contactInfo string) (*models.Borrower, error) {
	var borrower models.Borrower
	err := conn(ctx, r.db).Where("contact_info = ?", contactInfo).First(&borrower).Error
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}
