package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/jwt"
	"loanbook/internal/pkg/password"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	password.Cost = bcrypt.MinCost
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager("access-secret", "refresh-secret", "loanbook-test", 15*time.Minute, 7*24*time.Hour)
}

// fakeGateway is an in-memory loan service. When readBarrier is set every
// GetLoan waits on it after reading, so concurrent callers all observe the
// same snapshot. With lostReply an update is applied and then reported as
// a conflict on a retried attempt, as when the first reply timed out.
type fakeGateway struct {
	mu          sync.Mutex
	loans       map[uint]domain.Loan
	getErr      error
	updateErr   error
	listErr     error
	gets        int
	updates     int
	lastUpdate  domain.LoanUpdate
	readBarrier *sync.WaitGroup
	lostReply   bool
}

func newFakeGateway(loans ...domain.Loan) *fakeGateway {
	g := &fakeGateway{loans: make(map[uint]domain.Loan)}
	for _, l := range loans {
		g.loans[l.ID] = l
	}
	return g
}

func (g *fakeGateway) GetLoan(_ context.Context, id uint) (*domain.Loan, error) {
	g.mu.Lock()
	g.gets++
	if g.getErr != nil {
		g.mu.Unlock()
		return nil, g.getErr
	}
	loan, ok := g.loans[id]
	barrier := g.readBarrier
	g.mu.Unlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return &loan, nil
}

func (g *fakeGateway) UpdateLoan(_ context.Context, id uint, update domain.LoanUpdate) (*domain.Loan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.updates++
	g.lastUpdate = update
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	loan, ok := g.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.ExpectedVersion != nil && *update.ExpectedVersion != loan.Version {
		return nil, domain.ErrConflict
	}
	if update.OutstandingBalance != nil {
		loan.OutstandingBalance = *update.OutstandingBalance
	}
	if update.Status != nil {
		loan.Status = *update.Status
	}
	loan.Version++
	g.loans[id] = loan
	if g.lostReply {
		return nil, fmt.Errorf("%w: 409 loan was modified concurrently", domain.ErrRetriedWriteConflict)
	}
	return &loan, nil
}

func (g *fakeGateway) ListLoans(context.Context) ([]domain.Loan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gets++
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]domain.Loan, 0, len(g.loans))
	for id := uint(1); len(out) < len(g.loans); id++ {
		if l, ok := g.loans[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (g *fakeGateway) loan(id uint) domain.Loan {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loans[id]
}

func activeLoan(id uint, amount, balance string) domain.Loan {
	return domain.Loan{
		ID:                 id,
		BorrowerID:         1,
		Amount:             dec(amount),
		InterestRate:       dec("0.12"),
		Term:               12,
		StartDate:          "2024-01-01",
		Status:             domain.LoanStatusActive,
		OutstandingBalance: dec(balance),
		Version:            1,
	}
}
