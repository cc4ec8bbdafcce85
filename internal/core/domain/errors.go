package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error surfaced to the HTTP layer wraps exactly one
// of these so it can be mapped to a status code.
var (
	ErrValidation          = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("resource not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Token errors
var (
	ErrTokenMissing          = fmt.Errorf("%w: token missing", ErrUnauthorized)
	ErrTokenExpired          = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrTokenInvalidSignature = fmt.Errorf("%w: token signature invalid", ErrUnauthorized)
	ErrTokenMalformed        = fmt.Errorf("%w: token malformed", ErrUnauthorized)
	ErrRefreshTokenRejected  = fmt.Errorf("%w: refresh token not found, revoked or expired", ErrUnauthorized)
	ErrInvalidCredentials    = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrPermissionDenied      = fmt.Errorf("%w: missing permission", ErrForbidden)
)

// User errors
var (
	ErrUserNotFound      = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserAlreadyExists = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrUsernameRequired  = fmt.Errorf("%w: username is required", ErrValidation)
	ErrWeakPassword      = fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	ErrUnknownPermission = fmt.Errorf("%w: unknown permission", ErrValidation)
	ErrInvalidRole       = fmt.Errorf("%w: role must be USER, OFFICER or ADMIN", ErrValidation)
	ErrCannotDeleteSelf  = fmt.Errorf("%w: cannot delete your own account", ErrValidation)
)

// Loan errors
var (
	ErrLoanNotFound        = fmt.Errorf("%w: loan not found", ErrNotFound)
	ErrBorrowerNotFound    = fmt.Errorf("%w: borrower not found", ErrNotFound)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrInvalidRate         = fmt.Errorf("%w: interest rate must not be negative", ErrValidation)
	ErrInvalidDate         = fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrValidation)
	ErrBorrowerRequired    = fmt.Errorf("%w: borrower is required", ErrValidation)
	ErrInvalidTerm         = fmt.Errorf("%w: term must be a positive number of months", ErrValidation)
	ErrInvalidLoanStatus   = fmt.Errorf("%w: invalid loan status", ErrValidation)
	ErrInvalidBalance      = fmt.Errorf("%w: outstanding balance must be between 0 and the loan amount", ErrValidation)
	ErrLoanStateMismatch   = fmt.Errorf("%w: status paid_off requires a zero balance and a zero balance requires paid_off", ErrValidation)
	ErrLoanVersionConflict = fmt.Errorf("%w: loan was modified concurrently", ErrConflict)
	// ErrRetriedWriteConflict is a conflict on a repeated write whose
	// earlier attempt may already have been applied
	ErrRetriedWriteConflict = fmt.Errorf("%w: conflict after a retried write", ErrConflict)
)

// Repayment errors
var (
	ErrInvalidPaymentAmount   = fmt.Errorf("%w: payment amount must be greater than zero", ErrValidation)
	ErrLoanClosed             = fmt.Errorf("%w: loan is already paid off", ErrValidation)
	ErrLoanServiceUnavailable = fmt.Errorf("%w: loan service unavailable", ErrUpstreamUnavailable)
	ErrLoanUpdateFailed       = fmt.Errorf("%w: loan update failed", ErrUpstreamUnavailable)
)

// Report errors
var ErrInvalidReportFilter = fmt.Errorf("%w: status must be one of active, paid_off, defaulted, all", ErrValidation)
