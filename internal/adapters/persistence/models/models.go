package models

import (
	"time"

	"loanbook/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// User service tables
// ============================================================

// User represents users table
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;default:'USER'" json:"role"`
	Permissions  []string  `gorm:"type:text;serializer:json" json:"permissions"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table. Only the jti of an issued
// token is stored. Rows are revoked, never deleted.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	JTI       string     `gorm:"column:jti;size:36;uniqueIndex;not null" json:"jti"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	Revoked   bool       `gorm:"not null;default:false;index" json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsUsable reports whether the row can still be exchanged at now
func (rt *RefreshToken) IsUsable(now time.Time) bool {
	return !rt.Revoked && rt.ExpiresAt.After(now)
}

// ============================================================
// Loan service tables
// ============================================================

// Borrower represents borrowers table
type Borrower struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	ContactInfo string    `gorm:"size:120;uniqueIndex;not null" json:"contact_info"`
	CreditScore int       `json:"credit_score"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Borrower) TableName() string {
	return "borrowers"
}

func (b *Borrower) ToDomain() domain.Borrower {
	return domain.Borrower{
		ID:          b.ID,
		Name:        b.Name,
		ContactInfo: b.ContactInfo,
		CreditScore: b.CreditScore,
	}
}

// Loan represents loans table
type Loan struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	BorrowerID         uint            `gorm:"index;not null" json:"borrower_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate       decimal.Decimal `gorm:"type:decimal(9,6);not null" json:"interest_rate"`
	Term               int             `gorm:"not null" json:"term"`
	StartDate          string          `gorm:"size:10;not null" json:"start_date"`
	Status             string          `gorm:"size:20;not null;index" json:"status"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"outstanding_balance"`
	Version            uint            `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Borrower           *Borrower       `gorm:"foreignKey:BorrowerID" json:"-"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) ToDomain() domain.Loan {
	return domain.Loan{
		ID:                 l.ID,
		BorrowerID:         l.BorrowerID,
		Amount:             l.Amount,
		InterestRate:       l.InterestRate,
		Term:               l.Term,
		StartDate:          l.StartDate,
		Status:             domain.LoanStatus(l.Status),
		OutstandingBalance: l.OutstandingBalance,
		Version:            l.Version,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

// ============================================================
// Collection service tables
// ============================================================

// Repayment is one processed payment in the collection ledger
type Repayment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	LoanID           uint            `gorm:"index;not null" json:"loan_id"`
	PaymentAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"payment_amount"`
	InterestPortion  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"interest_portion"`
	PrincipalPortion decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_portion"`
	Overpayment      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"overpayment"`
	BalanceBefore    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	NewBalance       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"new_balance"`
	Status           string          `gorm:"size:20;not null" json:"status"`
	ProcessedBy      uint            `json:"processed_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Repayment) TableName() string {
	return "repayments"
}

// ============================================================
// Migrations
// ============================================================

// UserTables are owned by the user service
func UserTables() []interface{} {
	return []interface{}{&User{}, &RefreshToken{}}
}

// LoanTables are owned by the loan service
func LoanTables() []interface{} {
	return []interface{}{&Borrower{}, &Loan{}}
}

// CollectionTables are owned by the collection service
func CollectionTables() []interface{} {
	return []interface{}{&Repayment{}}
}

// AutoMigrate creates or updates the given tables
func AutoMigrate(db *gorm.DB, tables ...interface{}) error {
	return db.AutoMigrate(tables...)
}
