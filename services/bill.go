package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finloop/finloop-api/metrics"
	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/storage"
)

// BillUpdate carries the parsed field changes of a bill update request.
// Nil fields are left untouched.
type BillUpdate struct {
	Status      *models.BillStatus
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	DueDate     *time.Time
	Notes       *string
}

// RolloverResult reports what a paid transition materialized, if anything.
type RolloverResult struct {
	Bill       *models.Bill           `json:"bill,omitempty"`
	Recurrence *models.BillRecurrence `json:"recurrence,omitempty"`
}

type BillService struct {
	store storage.BillStore
	log   *slog.Logger
	now   func() time.Time
}

func NewBillService(store storage.BillStore, log *slog.Logger) *BillService {
	return &BillService{store: store, log: log, now: time.Now}
}

func (s *BillService) Get(ctx context.Context, ownerID, id string) (*models.Bill, error) {
	return s.store.FindBill(ctx, id, ownerID)
}

func (s *BillService) List(ctx context.Context, ownerID string, f storage.BillFilter) ([]models.Bill, error) {
	return s.store.ListBills(ctx, ownerID, f)
}

func (s *BillService) Create(ctx context.Context, ownerID string, b *models.Bill) (*models.Bill, error) {
	now := s.now()
	b.ID = uuid.New().String()
	b.OwnerID = ownerID
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = models.BillStatusOpen
	}
	if b.Status == models.BillStatusPaid && b.PaidAt == nil {
		b.PaidAt = &now
	}

	if b.RecurrenceID != nil {
		// The link must point at a schedule the caller owns.
		if _, err := s.store.FindRecurrence(ctx, *b.RecurrenceID, ownerID); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BillService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteBill(ctx, id, ownerID)
}

// Update applies a partial update to a bill and, when the update flips a
// recurrence-linked bill from not-paid to paid, rolls the schedule over:
// the next occurrence is created and the schedule pointer advances. The
// whole read-modify-write runs in one transaction with a conditional status
// guard, so a racing duplicate "mark paid" loses with ErrConflict and never
// materializes a second occurrence.
func (s *BillService) Update(ctx context.Context, ownerID, id string, upd BillUpdate) (*models.Bill, *RolloverResult, error) {
	var updated *models.Bill
	var rollover *RolloverResult

	err := s.store.InTx(ctx, func(tx storage.BillStore) error {
		prev, err := tx.FindBill(ctx, id, ownerID)
		if err != nil {
			return err
		}

		now := s.now()
		bill := *prev
		applyBillUpdate(&bill, upd, now)

		if err := tx.UpdateBill(ctx, &bill, prev.Status); err != nil {
			return err
		}
		updated = &bill

		if !paidTransition(prev, &bill) {
			return nil
		}

		result, err := s.rollover(ctx, tx, prev, now)
		if err != nil {
			return err
		}
		rollover = result
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, rollover, nil
}

// paidTransition reports whether the update moved a recurrence-linked bill
// into the paid state.
func paidTransition(prev, updated *models.Bill) bool {
	return prev.RecurrenceID != nil &&
		prev.Status != models.BillStatusPaid &&
		updated.Status == models.BillStatusPaid
}

// rollover performs steps the paid transition triggers: load the schedule,
// plan the next occurrence, persist it. A missing, foreign or non-active
// recurrence is a silent skip, not an error.
func (s *BillService) rollover(ctx context.Context, tx storage.BillStore, prev *models.Bill, now time.Time) (*RolloverResult, error) {
	rec, err := tx.FindRecurrence(ctx, *prev.RecurrenceID, prev.OwnerID)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("bill paid but recurrence is gone, skipping rollover",
			"bill_id", prev.ID, "recurrence_id", *prev.RecurrenceID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if rec.Status != models.RecurrenceStatusActive {
		return nil, nil
	}

	plan, err := PlanRollover(rec, now)
	if err != nil {
		return nil, fmt.Errorf("plan rollover for recurrence %s: %w", rec.ID, err)
	}

	if plan.NextBill != nil {
		if err := tx.CreateBill(ctx, plan.NextBill); err != nil {
			return nil, err
		}
	}

	rec.NextDueDate = plan.NextDueDate
	rec.Status = plan.Status
	rec.UpdatedAt = now
	if err := tx.UpdateRecurrence(ctx, rec); err != nil {
		return nil, err
	}

	metrics.RolloversTotal.Inc()
	s.log.Info("recurrence rolled over",
		"recurrence_id", rec.ID,
		"next_due_date", rec.NextDueDate.Format("2006-01-02"),
		"status", rec.Status,
		"materialized", plan.NextBill != nil)

	return &RolloverResult{Bill: plan.NextBill, Recurrence: rec}, nil
}

func applyBillUpdate(b *models.Bill, upd BillUpdate, now time.Time) {
	if upd.Amount != nil {
		b.Amount = *upd.Amount
	}
	if upd.Category != nil {
		b.Category = *upd.Category
	}
	if upd.Description != nil {
		b.Description = *upd.Description
	}
	if upd.DueDate != nil {
		b.DueDate = *upd.DueDate
	}
	if upd.Notes != nil {
		b.Notes = *upd.Notes
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	// paid_at is set if and only if the bill is paid.
	if b.Status == models.BillStatusPaid {
		if b.PaidAt == nil {
			b.PaidAt = &now
		}
	} else {
		b.PaidAt = nil
	}
	b.UpdatedAt = now
}
