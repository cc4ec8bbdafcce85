package handlers

import (
	"errors"

	"loanbook/internal/core/domain"
	"loanbook/internal/core/services"
	"loanbook/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CollectionHandler handles repayments
type CollectionHandler struct {
	repaymentService *services.RepaymentService
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(repaymentService *services.RepaymentService) *CollectionHandler {
	return &CollectionHandler{repaymentService: repaymentService}
}

// RepayRequest represents repayment request body
type RepayRequest struct {
	PaymentAmount decimal.Decimal `json:"payment_amount"`
}

// Repay applies a payment to a loan
// @Summary Process repayment
// @Description Allocate a payment to interest then principal and write the new balance to the loan service
// @Tags Collection
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RepayRequest true "Payment"
// @Success 200 {object} services.RepaymentResult
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Failure 503 {object} response.ErrorBody
// @Router /loans/{id}/repay [post]
func (h *CollectionHandler) Repay(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req RepayRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.repaymentService.ProcessRepayment(c.UserContext(), id, req.PaymentAmount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPaymentAmount):
			return response.BadRequest(c, "Payment amount must be greater than zero")
		case errors.Is(err, domain.ErrLoanClosed):
			return response.BadRequest(c, "Loan is already paid off")
		case errors.Is(err, domain.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, domain.ErrLoanVersionConflict):
			return response.Conflict(c, "Loan was modified concurrently, retry the repayment")
		case errors.Is(err, domain.ErrLoanUpdateFailed):
			return response.BadGateway(c, "Failed to update loan")
		case errors.Is(err, domain.ErrLoanServiceUnavailable):
			return response.ServiceUnavailable(c, "Loan service unavailable")
		default:
			return response.InternalServerError(c, "Failed to process repayment")
		}
	}
	return response.Success(c, result)
}

// History lists the recorded repayments of a loan
// @Summary Repayment history
// @Tags Collection
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {array} models.Repayment
// @Failure 401 {object} response.ErrorBody
// @Router /loans/{id}/repayments [get]
func (h *CollectionHandler) History(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	rows, err := h.repaymentService.History(c.UserContext(), id)
	if err != nil {
		return response.InternalServerError(c, "Failed to list repayments")
	}
	return response.Success(c, rows)
}
