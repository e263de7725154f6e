package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "income"
	TransactionKindExpense TransactionKind = "expense"
)

type Transaction struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"-"`
	Kind        TransactionKind `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateTransactionRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=income expense"`
	Amount      string `json:"amount" binding:"required,money"`
	Currency    string `json:"currency" binding:"required,currency"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurred_at" binding:"required,dateonly"`
}

type UpdateTransactionRequest struct {
	Kind        *string `json:"kind" binding:"omitempty,oneof=income expense"`
	Amount      *string `json:"amount" binding:"omitempty,money"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	OccurredAt  *string `json:"occurred_at" binding:"omitempty,dateonly"`
}
