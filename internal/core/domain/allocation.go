package domain

import "github.com/shopspring/decimal"

var monthsPerYear = decimal.NewFromInt(12)

// Allocation is the split of one payment against a loan balance
type Allocation struct {
	InterestDue      decimal.Decimal `json:"interest_due"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	Overpayment      decimal.Decimal `json:"overpayment"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	PaidOff          bool            `json:"paid_off"`
}

// MonthlyInterest returns one month of simple interest on balance at the
// given annual rate, rounded to cents. Interest is not compounded.
func MonthlyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(annualRate).Div(monthsPerYear).Round(2)
}

// AllocatePayment applies payment to balance, interest first and then
// principal. Principal never exceeds the balance; whatever remains after
// payoff is returned as Overpayment.
func AllocatePayment(balance, annualRate, payment decimal.Decimal) Allocation {
	interestDue := MonthlyInterest(balance, annualRate)

	interest := decimal.Min(payment, interestDue)
	principal := decimal.Max(decimal.Zero, payment.Sub(interestDue))
	if principal.GreaterThan(balance) {
		principal = balance
	}

	newBalance := balance.Sub(principal)
	paidOff := false
	if !newBalance.IsPositive() {
		newBalance = decimal.Zero
		paidOff = true
	}

	return Allocation{
		InterestDue:      interestDue,
		InterestPortion:  interest,
		PrincipalPortion: principal,
		Overpayment:      payment.Sub(interest).Sub(principal),
		NewBalance:       newBalance,
		PaidOff:          paidOff,
	}
}
