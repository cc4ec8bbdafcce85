package handlers

import (
	"errors"

	"loanbook/internal/core/domain"
	"loanbook/internal/core/services"
	"loanbook/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler serves the loan service's authoritative read/write API
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// ListLoans returns every loan
// @Summary List loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Loan
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c *fiber.Ctx) error {
	loans, err := h.loanService.ListLoans(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}
	return response.Success(c, loans)
}

// GetLoan returns one loan
// @Summary Get loan by ID
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} domain.Loan
// @Failure 401 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetLoan(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return response.NotFound(c, "Loan not found")
		}
		return response.InternalServerError(c, "Failed to get loan")
	}
	return response.Success(c, loan)
}

// CreateLoan creates a loan, resolving or creating its borrower
// @Summary Create loan
// @Description Borrower is referenced by borrower_id or resolved by borrower.contact_info
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLoanInput true "Loan data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c *fiber.Ctx) error {
	var req services.CreateLoanInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loan, err := h.loanService.CreateLoan(c.UserContext(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBorrowerNotFound):
			return response.NotFound(c, "Borrower not found")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrConflict):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to create loan")
		}
	}

	return response.Created(c, fiber.Map{
		"loan_id": loan.ID,
	})
}

// UpdateLoan applies a partial update
// @Summary Update loan
// @Description Change outstanding_balance and/or status; expected_version makes the write conditional
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body domain.LoanUpdate true "Fields to change"
// @Success 200 {object} domain.Loan
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /loans/{id} [put]
func (h *LoanHandler) UpdateLoan(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req domain.LoanUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loan, err := h.loanService.UpdateLoan(c.UserContext(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, domain.ErrLoanVersionConflict):
			return response.Conflict(c, "Loan was modified concurrently")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update loan")
		}
	}
	return response.Success(c, loan)
}
