package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
)

type Goal struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"-"`
	Name       string          `json:"name"`
	Target     decimal.Decimal `json:"target"`
	Saved      decimal.Decimal `json:"saved"`
	Currency   string          `json:"currency"`
	TargetDate *time.Time      `json:"target_date,omitempty"`
	Status     GoalStatus      `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type CreateGoalRequest struct {
	Name       string `json:"name" binding:"required"`
	Target     string `json:"target" binding:"required,money"`
	Currency   string `json:"currency" binding:"required,currency"`
	TargetDate string `json:"target_date" binding:"omitempty,dateonly"`
}

type GoalContributionRequest struct {
	Amount string `json:"amount" binding:"required,money"`
}
