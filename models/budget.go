package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a monthly spending limit for one category. Month is stored as
// the first day of the month.
type Budget struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"-"`
	Category  string          `json:"category"`
	Month     string          `json:"month"` // YYYY-MM
	Limit     decimal.Decimal `json:"limit"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BudgetSummary is one row of the budget-vs-spent report for a month.
type BudgetSummary struct {
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Currency  string          `json:"currency"`
}

type CreateBudgetRequest struct {
	Category string `json:"category" binding:"required"`
	Month    string `json:"month" binding:"required,yearmonth"`
	Limit    string `json:"limit" binding:"required,money"`
	Currency string `json:"currency" binding:"required,currency"`
}

type UpdateBudgetRequest struct {
	Limit string `json:"limit" binding:"required,money"`
}
