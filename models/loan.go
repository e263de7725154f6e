package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusClosed LoanStatus = "closed"
)

type Loan struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"-"`
	Lender       string          `json:"lender"`
	Principal    decimal.Decimal `json:"principal"`
	Balance      decimal.Decimal `json:"balance"`
	InterestRate decimal.Decimal `json:"interest_rate"` // annual, percent
	Currency     string          `json:"currency"`
	Status       LoanStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateLoanRequest struct {
	Lender       string `json:"lender" binding:"required"`
	Principal    string `json:"principal" binding:"required,money"`
	InterestRate string `json:"interest_rate" binding:"omitempty,money"`
	Currency     string `json:"currency" binding:"required,currency"`
}

type LoanPaymentRequest struct {
	Amount string `json:"amount" binding:"required,money"`
}
