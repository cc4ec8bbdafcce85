package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Loan amounts travel between services as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Permission is a capability string carried in access tokens
type Permission = string

const (
	PermUserManage       Permission = "user:manage"
	PermLoanRead         Permission = "loan:read"
	PermLoanCreate       Permission = "loan:create"
	PermLoanUpdate       Permission = "loan:update"
	PermRepaymentProcess Permission = "repayment:process"
	PermReportRead       Permission = "report:read"
)

// AllPermissions lists every capability known to the system
func AllPermissions() []string {
	return []string{
		PermUserManage,
		PermLoanRead,
		PermLoanCreate,
		PermLoanUpdate,
		PermRepaymentProcess,
		PermReportRead,
	}
}

// Role represents user role in the system
type Role string

const (
	RoleUser    Role = "USER"
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADMIN"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusPaidOff   LoanStatus = "paid_off"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// Valid reports whether s is a known loan status
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusActive, LoanStatusPaidOff, LoanStatusDefaulted:
		return true
	}
	return false
}

// DateLayout is the wire format of loan start dates
const DateLayout = "2006-01-02"

// Loan is the loan representation shared between services
type Loan struct {
	ID                 uint            `json:"id"`
	BorrowerID         uint            `json:"borrower_id"`
	Amount             decimal.Decimal `json:"amount"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	Term               int             `json:"term"`
	StartDate          string          `json:"start_date"`
	Status             LoanStatus      `json:"status"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Version            uint            `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LoanUpdate carries the fields a caller may change on a loan.
// Nil fields are left untouched.
type LoanUpdate struct {
	OutstandingBalance *decimal.Decimal `json:"outstanding_balance,omitempty"`
	Status             *LoanStatus      `json:"status,omitempty"`
	ExpectedVersion    *uint            `json:"expected_version,omitempty"`
}

// Borrower represents a borrower in the domain layer
type Borrower struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
	CreditScore int    `json:"credit_score"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
