package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// BILL MODEL
// ============================================================================

type BillKind string

const (
	BillKindPayable    BillKind = "payable"
	BillKindReceivable BillKind = "receivable"
)

type BillStatus string

const (
	BillStatusOpen     BillStatus = "open"
	BillStatusPaid     BillStatus = "paid"
	BillStatusOverdue  BillStatus = "overdue"
	BillStatusCanceled BillStatus = "canceled"
)

func ParseBillStatus(s string) (BillStatus, error) {
	switch BillStatus(s) {
	case BillStatusOpen, BillStatusPaid, BillStatusOverdue, BillStatusCanceled:
		return BillStatus(s), nil
	}
	return "", fmt.Errorf("invalid bill status %q", s)
}

type Bill struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"-"`
	Kind         BillKind        `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Status       BillStatus      `json:"status"`
	DueDate      time.Time       `json:"due_date"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	RecurrenceID *string         `json:"recurrence_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ============================================================================
// RECURRENCE MODEL
// ============================================================================

// ErrInvalidFrequency is returned when a raw frequency string is not one of
// the closed set. There is deliberately no default branch: a typo fails
// loudly instead of silently behaving like a monthly schedule.
var ErrInvalidFrequency = errors.New("invalid frequency")

type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

type RecurrenceStatus string

const (
	RecurrenceStatusActive    RecurrenceStatus = "active"
	RecurrenceStatusCompleted RecurrenceStatus = "completed"
	RecurrenceStatusPaused    RecurrenceStatus = "paused"
)

func ParseRecurrenceStatus(s string) (RecurrenceStatus, error) {
	switch RecurrenceStatus(s) {
	case RecurrenceStatusActive, RecurrenceStatusCompleted, RecurrenceStatusPaused:
		return RecurrenceStatus(s), nil
	}
	return "", fmt.Errorf("invalid recurrence status %q", s)
}

// BillRecurrence is a template plus a schedule pointer: NextDueDate is the
// due date the next materialized bill will receive. NextDueDate only ever
// moves forward; EndDate is an inclusive upper bound.
type BillRecurrence struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"-"`
	Kind        BillKind         `json:"kind"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Notes       string           `json:"notes,omitempty"`
	Frequency   Frequency        `json:"frequency"`
	Interval    int              `json:"interval"`
	StartDate   time.Time        `json:"start_date"`
	NextDueDate time.Time        `json:"next_due_date"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Status      RecurrenceStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ============================================================================
// REQUESTS
// ============================================================================

type CreateBillRequest struct {
	Kind         string `json:"kind" binding:"required,oneof=payable receivable"`
	Amount       string `json:"amount" binding:"required,money"`
	Currency     string `json:"currency" binding:"required,currency"`
	Category     string `json:"category" binding:"required"`
	Description  string `json:"description"`
	DueDate      string `json:"due_date" binding:"required,dateonly"`
	Notes        string `json:"notes"`
	RecurrenceID string `json:"recurrence_id" binding:"omitempty,uuid4"`
}

// UpdateBillRequest is a partial update: nil fields are left untouched.
type UpdateBillRequest struct {
	Status      *string `json:"status" binding:"omitempty,oneof=open paid overdue canceled"`
	Amount      *string `json:"amount" binding:"omitempty,money"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date" binding:"omitempty,dateonly"`
	Notes       *string `json:"notes"`
}

type CreateRecurrenceRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=payable receivable"`
	Amount      string `json:"amount" binding:"required,money"`
	Currency    string `json:"currency" binding:"required,currency"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Frequency   string `json:"frequency" binding:"required,oneof=weekly monthly yearly"`
	Interval    int    `json:"interval" binding:"required,min=1"`
	StartDate   string `json:"start_date" binding:"required,dateonly"`
	EndDate     string `json:"end_date" binding:"omitempty,dateonly"`
}

type UpdateRecurrenceRequest struct {
	Status      *string `json:"status" binding:"omitempty,oneof=active paused"`
	Amount      *string `json:"amount" binding:"omitempty,money"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}
