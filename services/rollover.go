package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finloop/finloop-api/models"
)

// AdvanceDueDate moves a due date forward by interval units of frequency.
// Month and year arithmetic follows time.AddDate normalization: Jan 31 plus
// one month lands on Mar 2/3, Feb 29 plus one year lands on Mar 1. The rule
// is deterministic and asserted in tests.
func AdvanceDueDate(date time.Time, frequency models.Frequency, interval int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("interval must be positive, got %d", interval)
	}

	switch frequency {
	case models.FrequencyWeekly:
		return date.AddDate(0, 0, 7*interval), nil
	case models.FrequencyMonthly:
		return date.AddDate(0, interval, 0), nil
	case models.FrequencyYearly:
		return date.AddDate(interval, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidFrequency, frequency)
}

// RolloverPlan is the decision for one paid transition: the bill to
// materialize (nil when the schedule is already exhausted), the advanced
// schedule pointer, and the recurrence status after the rollover.
type RolloverPlan struct {
	NextBill    *models.Bill
	NextDueDate time.Time
	Status      models.RecurrenceStatus
}

// PlanRollover computes what paying the current occurrence of rec does to
// the schedule. It assumes rec is active; callers gate on status first.
//
// The end date is an inclusive bound: a bill due exactly on it is still
// materialized, and only then does the recurrence complete.
func PlanRollover(rec *models.BillRecurrence, now time.Time) (RolloverPlan, error) {
	due := rec.NextDueDate

	if rec.EndDate != nil && due.After(*rec.EndDate) {
		// Schedule pointer already past the end; nothing left to produce.
		return RolloverPlan{
			NextDueDate: due,
			Status:      models.RecurrenceStatusCompleted,
		}, nil
	}

	next, err := AdvanceDueDate(due, rec.Frequency, rec.Interval)
	if err != nil {
		return RolloverPlan{}, err
	}

	status := models.RecurrenceStatusActive
	if rec.EndDate != nil && next.After(*rec.EndDate) {
		status = models.RecurrenceStatusCompleted
	}

	bill := &models.Bill{
		ID:           uuid.New().String(),
		OwnerID:      rec.OwnerID,
		Kind:         rec.Kind,
		Amount:       rec.Amount,
		Currency:     rec.Currency,
		Category:     rec.Category,
		Description:  rec.Description,
		Notes:        rec.Notes,
		Status:       models.BillStatusOpen,
		DueDate:      due,
		RecurrenceID: &rec.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return RolloverPlan{NextBill: bill, NextDueDate: next, Status: status}, nil
}
