package services

import (
	"context"
	"log/slog"

	"loanbook/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ReportFilterAll selects loans of every status
const ReportFilterAll = "all"

// LoanReport is a filtered loan list. When Degraded is set the loan service
// could not be read and Loans is empty rather than authoritative.
type LoanReport struct {
	Filter   string        `json:"filter"`
	Loans    []domain.Loan `json:"loans"`
	Degraded bool          `json:"degraded"`
	Error    string        `json:"error,omitempty"`
}

// StatusSummary aggregates the loans of one status
type StatusSummary struct {
	Count            int             `json:"count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// BookSummary aggregates the whole loan book
type BookSummary struct {
	ByStatus         map[domain.LoanStatus]*StatusSummary `json:"by_status"`
	TotalLoans       int                                  `json:"total_loans"`
	TotalAmount      decimal.Decimal                      `json:"total_amount"`
	TotalOutstanding decimal.Decimal                      `json:"total_outstanding"`
	Degraded         bool                                 `json:"degraded"`
	Error            string                               `json:"error,omitempty"`
}

// ReportingService builds reports from loan snapshots
type ReportingService struct {
	loans  LoanGateway
	logger *slog.Logger
}

// NewReportingService creates a reporting service
func NewReportingService(loans LoanGateway, logger *slog.Logger) *ReportingService {
	return &ReportingService{loans: loans, logger: logger}
}

// ValidFilter reports whether filter names a status or "all"
func ValidFilter(filter string) bool {
	return filter == ReportFilterAll || domain.LoanStatus(filter).Valid()
}

// Report returns the loans whose status equals filter. A failed fetch
// yields an empty, degraded report instead of an error.
func (s *ReportingService) Report(ctx context.Context, filter string) (*LoanReport, error) {
	if !ValidFilter(filter) {
		return nil, domain.ErrInvalidReportFilter
	}

	report := &LoanReport{Filter: filter, Loans: []domain.Loan{}}

	loans, err := s.loans.ListLoans(ctx)
	if err != nil {
		s.logger.Warn("loan report degraded", slog.String("filter", filter), slog.String("error", err.Error()))
		report.Degraded = true
		report.Error = domain.ErrLoanServiceUnavailable.Error()
		return report, nil
	}

	for _, l := range loans {
		if filter == ReportFilterAll || string(l.Status) == filter {
			report.Loans = append(report.Loans, l)
		}
	}
	return report, nil
}

// Summary aggregates counts and totals per status
func (s *ReportingService) Summary(ctx context.Context) *BookSummary {
	summary := &BookSummary{
		ByStatus: map[domain.LoanStatus]*StatusSummary{
			domain.LoanStatusActive:    newStatusSummary(),
			domain.LoanStatusPaidOff:   newStatusSummary(),
			domain.LoanStatusDefaulted: newStatusSummary(),
		},
		TotalAmount:      decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}

	loans, err := s.loans.ListLoans(ctx)
	if err != nil {
		s.logger.Warn("loan summary degraded", slog.String("error", err.Error()))
		summary.Degraded = true
		summary.Error = domain.ErrLoanServiceUnavailable.Error()
		return summary
	}

	for _, l := range loans {
		bucket, ok := summary.ByStatus[l.Status]
		if !ok {
			bucket = newStatusSummary()
			summary.ByStatus[l.Status] = bucket
		}
		bucket.Count++
		bucket.TotalAmount = bucket.TotalAmount.Add(l.Amount)
		bucket.TotalOutstanding = bucket.TotalOutstanding.Add(l.OutstandingBalance)

		summary.TotalLoans++
		summary.TotalAmount = summary.TotalAmount.Add(l.Amount)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(l.OutstandingBalance)
	}
	return summary
}

func newStatusSummary() *StatusSummary {
	return &StatusSummary{TotalAmount: decimal.Zero, TotalOutstanding: decimal.Zero}
}
