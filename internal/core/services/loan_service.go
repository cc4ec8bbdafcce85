package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanService is the authoritative read/write API over loans
type LoanService struct {
	loanRepo     repositories.LoanRepository
	borrowerRepo repositories.BorrowerRepository
	tx           repositories.Transactor
	logger       *slog.Logger
}

// NewLoanService creates a new loan service
func NewLoanService(
	loanRepo repositories.LoanRepository,
	borrowerRepo repositories.BorrowerRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) *LoanService {
	return &LoanService{
		loanRepo:     loanRepo,
		borrowerRepo: borrowerRepo,
		tx:           tx,
		logger:       logger,
	}
}

// BorrowerInput identifies or describes the borrower of a new loan
type BorrowerInput struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
	CreditScore int    `json:"credit_score"`
}

// CreateLoanInput for creating loan
type CreateLoanInput struct {
	BorrowerID   uint            `json:"borrower_id"`
	Borrower     *BorrowerInput  `json:"borrower"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Term         int             `json:"term"`
	StartDate    string          `json:"start_date"`
}

// Validate checks the input in a fixed order; the first failure is returned
func (in *CreateLoanInput) Validate() error {
	if !in.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if in.InterestRate.IsNegative() {
		return domain.ErrInvalidRate
	}
	if _, err := time.Parse(domain.DateLayout, in.StartDate); err != nil {
		return domain.ErrInvalidDate
	}
	if in.BorrowerID == 0 && (in.Borrower == nil || strings.TrimSpace(in.Borrower.ContactInfo) == "") {
		return domain.ErrBorrowerRequired
	}
	if in.Term <= 0 {
		return domain.ErrInvalidTerm
	}
	return nil
}

// GetLoan gets a loan by ID
func (s *LoanService) GetLoan(ctx context.Context, id uint) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	out := loan.ToDomain()
	return &out, nil
}

// ListLoans returns every loan
func (s *LoanService) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	loans, err := s.loanRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Loan, 0, len(loans))
	for _, l := range loans {
		out = append(out, l.ToDomain())
	}
	return out, nil
}

// CreateLoan validates input, resolves or creates the borrower and inserts
// the loan in one transaction.
func (s *LoanService) CreateLoan(ctx context.Context, input *CreateLoanInput) (*domain.Loan, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var created *models.Loan
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		borrower, err := s.resolveBorrower(ctx, input)
		if err != nil {
			return err
		}

		created = &models.Loan{
			BorrowerID:         borrower.ID,
			Amount:             input.Amount,
			InterestRate:       input.InterestRate,
			Term:               input.Term,
			StartDate:          input.StartDate,
			Status:             string(domain.LoanStatusActive),
			OutstandingBalance: input.Amount,
			Version:            1,
		}
		return s.loanRepo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan created",
		slog.Uint64("loan_id", uint64(created.ID)),
		slog.Uint64("borrower_id", uint64(created.BorrowerID)),
		slog.String("amount", created.Amount.String()),
	)
	out := created.ToDomain()
	return &out, nil
}

func (s *LoanService) resolveBorrower(ctx context.Context, input *CreateLoanInput) (*models.Borrower, error) {
	if input.BorrowerID != 0 {
		borrower, err := s.borrowerRepo.GetByID(ctx, input.BorrowerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBorrowerNotFound
		}
		return borrower, err
	}

	contact := strings.TrimSpace(input.Borrower.ContactInfo)
	borrower, err := s.borrowerRepo.GetByContactInfo(ctx, contact)
	if err == nil {
		return borrower, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	borrower = &models.Borrower{
		Name:        strings.TrimSpace(input.Borrower.Name),
		ContactInfo: contact,
		CreditScore: input.Borrower.CreditScore,
	}
	if borrower.Name == "" {
		borrower.Name = contact
	}
	if err := s.borrowerRepo.Create(ctx, borrower); err != nil {
		return nil, err
	}
	return borrower, nil
}

// UpdateLoan applies a partial update. The balance must stay within
// [0, amount]; a zero balance forces paid_off and a positive balance on a
// paid_off loan reopens it unless a status is given. When ExpectedVersion is
// set the write only succeeds against that version.
func (s *LoanService) UpdateLoan(ctx context.Context, id uint, update domain.LoanUpdate) (*domain.Loan, error) {
	var loan *models.Loan
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loanRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLoanNotFound
			}
			return err
		}

		if update.ExpectedVersion != nil && *update.ExpectedVersion != loan.Version {
			return domain.ErrLoanVersionConflict
		}
		if err := applyLoanUpdate(loan, update); err != nil {
			return err
		}

		written, err := s.loanRepo.UpdateState(ctx, loan, loan.Version)
		if err != nil {
			return err
		}
		if !written {
			return domain.ErrLoanVersionConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan updated",
		slog.Uint64("loan_id", uint64(loan.ID)),
		slog.String("outstanding_balance", loan.OutstandingBalance.String()),
		slog.String("status", loan.Status),
	)
	out := loan.ToDomain()
	return &out, nil
}

func applyLoanUpdate(loan *models.Loan, update domain.LoanUpdate) error {
	if update.Status != nil && !update.Status.Valid() {
		return domain.ErrInvalidLoanStatus
	}

	if update.OutstandingBalance != nil {
		balance := *update.OutstandingBalance
		if balance.IsNegative() || balance.GreaterThan(loan.Amount) {
			return domain.ErrInvalidBalance
		}
		loan.OutstandingBalance = balance
	}

	switch {
	case update.Status != nil:
		loan.Status = string(*update.Status)
	case loan.OutstandingBalance.IsZero():
		loan.Status = string(domain.LoanStatusPaidOff)
	case loan.Status == string(domain.LoanStatusPaidOff):
		loan.Status = string(domain.LoanStatusActive)
	}

	paidOff := loan.Status == string(domain.LoanStatusPaidOff)
	if paidOff != loan.OutstandingBalance.IsZero() {
		return domain.ErrLoanStateMismatch
	}
	return nil
}
