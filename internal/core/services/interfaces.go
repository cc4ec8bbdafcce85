package services

import (
	"context"

	"loanbook/internal/core/domain"
)

// LoanGateway is the remote view of the loan service used by collection and
// reporting. Implementations retry transient failures themselves; a missing
// loan is reported with domain.ErrNotFound.
type LoanGateway interface {
	GetLoan(ctx context.Context, id uint) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, id uint, update domain.LoanUpdate) (*domain.Loan, error)
	ListLoans(ctx context.Context) ([]domain.Loan, error)
}
