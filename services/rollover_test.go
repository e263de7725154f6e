package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finloop/finloop-api/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvanceDueDate(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		frequency models.Frequency
		interval  int
		want      time.Time
	}{
		{"weekly single", date(2024, 1, 1), models.FrequencyWeekly, 1, date(2024, 1, 8)},
		{"weekly double", date(2024, 1, 1), models.FrequencyWeekly, 2, date(2024, 1, 15)},
		{"monthly plain", date(2024, 3, 1), models.FrequencyMonthly, 1, date(2024, 4, 1)},
		{"monthly quarterly", date(2024, 1, 15), models.FrequencyMonthly, 3, date(2024, 4, 15)},
		// Jan 31 + 1 month normalizes per time.AddDate: Feb 31 -> Mar 2 in a leap year.
		{"monthly overflow", date(2024, 1, 31), models.FrequencyMonthly, 1, date(2024, 3, 2)},
		{"yearly plain", date(2024, 6, 15), models.FrequencyYearly, 1, date(2025, 6, 15)},
		// Feb 29 + 1 year normalizes to Mar 1 in the non-leap target year.
		{"yearly leap day", date(2024, 2, 29), models.FrequencyYearly, 1, date(2025, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AdvanceDueDate(tt.start, tt.frequency, tt.interval)
			if err != nil {
				t.Fatalf("AdvanceDueDate() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("AdvanceDueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdvanceDueDateRejectsUnknownFrequency(t *testing.T) {
	_, err := AdvanceDueDate(date(2024, 1, 1), models.Frequency("fortnightly"), 1)
	if !errors.Is(err, models.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestAdvanceDueDateRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []int{0, -1} {
		if _, err := AdvanceDueDate(date(2024, 1, 1), models.FrequencyWeekly, interval); err == nil {
			t.Errorf("interval %d: expected error, got nil", interval)
		}
	}
}

func testRecurrence() *models.BillRecurrence {
	return &models.BillRecurrence{
		ID:          "rec-1",
		OwnerID:     "user-1",
		Kind:        models.BillKindPayable,
		Amount:      decimal.RequireFromString("49.90"),
		Currency:    "EUR",
		Category:    "utilities",
		Description: "Electricity",
		Notes:       "autopay",
		Frequency:   models.FrequencyMonthly,
		Interval:    1,
		StartDate:   date(2024, 1, 1),
		NextDueDate: date(2024, 3, 1),
		Status:      models.RecurrenceStatusActive,
	}
}

func TestPlanRolloverMaterializesNextOccurrence(t *testing.T) {
	rec := testRecurrence()
	now := time.Now()

	plan, err := PlanRollover(rec, now)
	if err != nil {
		t.Fatalf("PlanRollover() error = %v", err)
	}

	if plan.NextBill == nil {
		t.Fatal("expected a materialized bill")
	}
	bill := plan.NextBill
	if !bill.DueDate.Equal(date(2024, 3, 1)) {
		t.Errorf("bill due date = %v, want 2024-03-01", bill.DueDate)
	}
	if bill.Status != models.BillStatusOpen {
		t.Errorf("bill status = %q, want open", bill.Status)
	}
	if bill.OwnerID != rec.OwnerID {
		t.Errorf("bill owner = %q, want %q", bill.OwnerID, rec.OwnerID)
	}
	if bill.RecurrenceID == nil || *bill.RecurrenceID != rec.ID {
		t.Error("bill not linked back to its recurrence")
	}
	if !bill.Amount.Equal(rec.Amount) || bill.Currency != rec.Currency ||
		bill.Category != rec.Category || bill.Description != rec.Description ||
		bill.Notes != rec.Notes || bill.Kind != rec.Kind {
		t.Error("template fields not copied onto the materialized bill")
	}

	if !plan.NextDueDate.Equal(date(2024, 4, 1)) {
		t.Errorf("next due date = %v, want 2024-04-01", plan.NextDueDate)
	}
	if plan.Status != models.RecurrenceStatusActive {
		t.Errorf("status = %q, want active", plan.Status)
	}
}

func TestPlanRolloverEndDateIsInclusive(t *testing.T) {
	rec := testRecurrence()
	end := date(2024, 3, 1)
	rec.EndDate = &end

	plan, err := PlanRollover(rec, time.Now())
	if err != nil {
		t.Fatalf("PlanRollover() error = %v", err)
	}

	// Due date equals the end date: the bill is still materialized, and
	// only then does the schedule complete.
	if plan.NextBill == nil {
		t.Fatal("expected a materialized bill on the end date")
	}
	if plan.Status != models.RecurrenceStatusCompleted {
		t.Errorf("status = %q, want completed", plan.Status)
	}
	if !plan.NextDueDate.Equal(date(2024, 4, 1)) {
		t.Errorf("next due date = %v, want 2024-04-01", plan.NextDueDate)
	}
}

func TestPlanRolloverPastEndDate(t *testing.T) {
	rec := testRecurrence()
	rec.NextDueDate = date(2024, 5, 1)
	end := date(2024, 4, 1)
	rec.EndDate = &end

	plan, err := PlanRollover(rec, time.Now())
	if err != nil {
		t.Fatalf("PlanRollover() error = %v", err)
	}

	if plan.NextBill != nil {
		t.Error("expected no bill past the end date")
	}
	if plan.Status != models.RecurrenceStatusCompleted {
		t.Errorf("status = %q, want completed", plan.Status)
	}
	if !plan.NextDueDate.Equal(date(2024, 5, 1)) {
		t.Errorf("schedule pointer moved: %v, want unchanged 2024-05-01", plan.NextDueDate)
	}
}
