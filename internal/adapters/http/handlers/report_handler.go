package handlers

import (
	"errors"

	"loanbook/internal/core/domain"
	"loanbook/internal/core/services"
	"loanbook/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	// HeaderReportDegraded marks a report built without loan data
	HeaderReportDegraded = "X-Report-Degraded"
	// HeaderReportError carries the reason of a degraded report
	HeaderReportError = "X-Report-Error"
)

// ReportHandler serves loan reports
type ReportHandler struct {
	reportingService *services.ReportingService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportingService *services.ReportingService) *ReportHandler {
	return &ReportHandler{reportingService: reportingService}
}

// ActiveLoans lists active loans
// @Summary Active loans report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Loan
// @Router /reports/active-loans [get]
func (h *ReportHandler) ActiveLoans(c *fiber.Ctx) error {
	return h.report(c, string(domain.LoanStatusActive))
}

// PaidOffLoans lists paid off loans
// @Summary Paid off loans report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Loan
// @Router /reports/paid-off-loans [get]
func (h *ReportHandler) PaidOffLoans(c *fiber.Ctx) error {
	return h.report(c, string(domain.LoanStatusPaidOff))
}

// Loans lists loans filtered by the status query parameter
// @Summary Loans by status
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "active, paid_off, defaulted or all" default(all)
// @Success 200 {array} domain.Loan
// @Failure 400 {object} response.ErrorBody
// @Router /reports/loans [get]
func (h *ReportHandler) Loans(c *fiber.Ctx) error {
	return h.report(c, c.Query("status", services.ReportFilterAll))
}

// Summary aggregates the loan book per status
// @Summary Loan book summary
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.BookSummary
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	summary := h.reportingService.Summary(c.UserContext())
	if summary.Degraded {
		markDegraded(c, summary.Error)
	}
	return response.Success(c, summary)
}

func (h *ReportHandler) report(c *fiber.Ctx, filter string) error {
	report, err := h.reportingService.Report(c.UserContext(), filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidReportFilter) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to build report")
	}

	if report.Degraded {
		markDegraded(c, report.Error)
	}
	return response.Success(c, report.Loans)
}

func markDegraded(c *fiber.Ctx, reason string) {
	c.Set(HeaderReportDegraded, "true")
	c.Set(HeaderReportError, reason)
}
