package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/metrics"

	"github.com/shopspring/decimal"
)

// RepaymentResult describes one applied payment
type RepaymentResult struct {
	LoanID           uint              `json:"loan_id"`
	PaymentAmount    decimal.Decimal   `json:"payment_amount"`
	InterestDue      decimal.Decimal   `json:"interest_due"`
	InterestPortion  decimal.Decimal   `json:"interest_portion"`
	PrincipalPortion decimal.Decimal   `json:"principal_portion"`
	Overpayment      decimal.Decimal   `json:"overpayment"`
	PreviousBalance  decimal.Decimal   `json:"previous_balance"`
	NewBalance       decimal.Decimal   `json:"new_balance"`
	Status           domain.LoanStatus `json:"status"`
}

// RepaymentService applies payments to loans owned by the loan service
type RepaymentService struct {
	loans          LoanGateway
	ledger         repositories.RepaymentRepository
	optimisticLock bool
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// NewRepaymentService creates a repayment service. With optimisticLock the
// write carries the version that was read, so a concurrent repayment fails
// with a conflict instead of being overwritten. m may be nil.
func NewRepaymentService(
	loans LoanGateway,
	ledger repositories.RepaymentRepository,
	optimisticLock bool,
	m *metrics.Metrics,
	logger *slog.Logger,
) *RepaymentService {
	return &RepaymentService{
		loans:          loans,
		ledger:         ledger,
		optimisticLock: optimisticLock,
		metrics:        m,
		logger:         logger,
	}
}

// ProcessRepayment reads the loan, allocates amount to interest then
// principal and writes the new balance back. Nothing is changed locally
// until the write has succeeded.
func (s *RepaymentService) ProcessRepayment(ctx context.Context, loanID uint, amount decimal.Decimal) (*RepaymentResult, error) {
	result, err := s.process(ctx, loanID, amount)
	s.count(err)
	return result, err
}

func (s *RepaymentService) process(ctx context.Context, loanID uint, amount decimal.Decimal) (*RepaymentResult, error) {
	// 1. Validate amount before any remote call
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidPaymentAmount
	}

	// 2. Read the authoritative loan state
	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		s.logger.Error("loan read failed", slog.Uint64("loan_id", uint64(loanID)), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", domain.ErrLoanServiceUnavailable, err)
	}
	if loan.Status == domain.LoanStatusPaidOff {
		return nil, domain.ErrLoanClosed
	}

	// 3. Allocate
	alloc := domain.AllocatePayment(loan.OutstandingBalance, loan.InterestRate, amount)
	status := loan.Status
	if alloc.PaidOff {
		status = domain.LoanStatusPaidOff
	}

	// 4. Write back
	update := domain.LoanUpdate{
		OutstandingBalance: &alloc.NewBalance,
		Status:             &status,
	}
	if s.optimisticLock {
		version := loan.Version
		update.ExpectedVersion = &version
	}
	if _, err := s.loans.UpdateLoan(ctx, loanID, update); err != nil {
		switch {
		case errors.Is(err, domain.ErrRetriedWriteConflict):
			if err := s.confirmWrite(ctx, loanID, loan.Version, update); err != nil {
				return nil, err
			}
		case errors.Is(err, domain.ErrConflict):
			return nil, domain.ErrLoanVersionConflict
		default:
			s.logger.Error("loan update failed", slog.Uint64("loan_id", uint64(loanID)), slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %v", domain.ErrLoanUpdateFailed, err)
		}
	}

	result := &RepaymentResult{
		LoanID:           loanID,
		PaymentAmount:    amount,
		InterestDue:      alloc.InterestDue,
		InterestPortion:  alloc.InterestPortion,
		PrincipalPortion: alloc.PrincipalPortion,
		Overpayment:      alloc.Overpayment,
		PreviousBalance:  loan.OutstandingBalance,
		NewBalance:       alloc.NewBalance,
		Status:           status,
	}

	// 5. Ledger; the loan service already holds the new state
	s.record(ctx, result)

	attrs := []any{
		slog.Uint64("loan_id", uint64(loanID)),
		slog.String("payment", amount.String()),
		slog.String("new_balance", alloc.NewBalance.String()),
		slog.String("status", string(status)),
	}
	if alloc.Overpayment.IsPositive() {
		attrs = append(attrs, slog.String("overpayment", alloc.Overpayment.String()))
	}
	s.logger.Info("repayment processed", attrs...)

	return result, nil
}

// confirmWrite checks whether an earlier attempt of a write that later
// conflicted was applied: the loan must be exactly one version past the
// one read and hold the balance and status that were sent.
func (s *RepaymentService) confirmWrite(ctx context.Context, loanID, readVersion uint, update domain.LoanUpdate) error {
	current, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		s.logger.Error("loan re-read after conflict failed", slog.Uint64("loan_id", uint64(loanID)), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", domain.ErrLoanUpdateFailed, err)
	}
	if current.Version != readVersion+1 ||
		!current.OutstandingBalance.Equal(*update.OutstandingBalance) ||
		current.Status != *update.Status {
		return domain.ErrLoanVersionConflict
	}

	s.logger.Warn("loan update applied by an earlier attempt",
		slog.Uint64("loan_id", uint64(loanID)),
		slog.Uint64("version", uint64(current.Version)),
	)
	return nil
}

func (s *RepaymentService) record(ctx context.Context, r *RepaymentResult) {
	if s.ledger == nil {
		return
	}

	var processedBy uint
	if auth, ok := domain.AuthFromContext(ctx); ok {
		processedBy = auth.UserID
	}

	row := &models.Repayment{
		LoanID:           r.LoanID,
		PaymentAmount:    r.PaymentAmount,
		InterestPortion:  r.InterestPortion,
		PrincipalPortion: r.PrincipalPortion,
		Overpayment:      r.Overpayment,
		BalanceBefore:    r.PreviousBalance,
		NewBalance:       r.NewBalance,
		Status:           string(r.Status),
		ProcessedBy:      processedBy,
	}
	if err := s.ledger.Create(ctx, row); err != nil {
		s.logger.Error("repayment ledger write failed",
			slog.Uint64("loan_id", uint64(r.LoanID)),
			slog.String("error", err.Error()),
		)
	}
}

// History returns the recorded repayments of loanID, oldest first
func (s *RepaymentService) History(ctx context.Context, loanID uint) ([]*models.Repayment, error) {
	return s.ledger.ListByLoanID(ctx, loanID)
}

func (s *RepaymentService) count(err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		result = "rejected"
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrConflict):
		result = "conflict"
	default:
		result = "failed"
	}
	s.metrics.Repayments.WithLabelValues(result).Inc()
}
