package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/storage"
)

// fakeStore is an in-memory BillStore with the same conditional-update
// semantics as the postgres implementation.
type fakeStore struct {
	mu          sync.Mutex
	bills       map[string]models.Bill
	recurrences map[string]models.BillRecurrence

	// onFindBill, when set, mutates the bill a FindBill call returns. Used
	// to hand the service a stale snapshot and exercise the status guard.
	onFindBill func(*models.Bill)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bills:       make(map[string]models.Bill),
		recurrences: make(map[string]models.BillRecurrence),
	}
}

func (f *fakeStore) FindBill(_ context.Context, id, ownerID string) (*models.Bill, error) {
	b, ok := f.bills[id]
	if !ok || b.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	if f.onFindBill != nil {
		f.onFindBill(&b)
	}
	return &b, nil
}

func (f *fakeStore) ListBills(_ context.Context, ownerID string, _ storage.BillFilter) ([]models.Bill, error) {
	var out []models.Bill
	for _, b := range f.bills {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBill(_ context.Context, b *models.Bill) error {
	f.bills[b.ID] = *b
	return nil
}

func (f *fakeStore) UpdateBill(_ context.Context, b *models.Bill, expected models.BillStatus) error {
	current, ok := f.bills[b.ID]
	if !ok || current.OwnerID != b.OwnerID {
		return storage.ErrNotFound
	}
	if current.Status != expected {
		return storage.ErrConflict
	}
	f.bills[b.ID] = *b
	return nil
}

func (f *fakeStore) DeleteBill(_ context.Context, id, ownerID string) error {
	b, ok := f.bills[id]
	if !ok || b.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(f.bills, id)
	return nil
}

func (f *fakeStore) FindRecurrence(_ context.Context, id, ownerID string) (*models.BillRecurrence, error) {
	r, ok := f.recurrences[id]
	if !ok || r.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) ListRecurrences(_ context.Context, ownerID string) ([]models.BillRecurrence, error) {
	var out []models.BillRecurrence
	for _, r := range f.recurrences {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRecurrence(_ context.Context, r *models.BillRecurrence) error {
	f.recurrences[r.ID] = *r
	return nil
}

func (f *fakeStore) UpdateRecurrence(_ context.Context, r *models.BillRecurrence) error {
	current, ok := f.recurrences[r.ID]
	if !ok || current.OwnerID != r.OwnerID {
		return storage.ErrNotFound
	}
	if r.NextDueDate.Before(current.NextDueDate) {
		return storage.ErrConflict
	}
	f.recurrences[r.ID] = *r
	return nil
}

func (f *fakeStore) DeleteRecurrence(_ context.Context, id, ownerID string) error {
	r, ok := f.recurrences[id]
	if !ok || r.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(f.recurrences, id)
	return nil
}

// InTx serializes callers the way a database transaction would.
func (f *fakeStore) InTx(_ context.Context, fn func(storage.BillStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func newTestService(store *fakeStore) *BillService {
	s := NewBillService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return date(2024, 2, 10) }
	return s
}

func seedLinkedBill(store *fakeStore) (*models.Bill, *models.BillRecurrence) {
	rec := testRecurrence()
	store.recurrences[rec.ID] = *rec

	recID := rec.ID
	bill := &models.Bill{
		ID:           "bill-1",
		OwnerID:      "user-1",
		Kind:         models.BillKindPayable,
		Amount:       rec.Amount,
		Currency:     "EUR",
		Category:     "utilities",
		Status:       models.BillStatusOpen,
		DueDate:      date(2024, 2, 1),
		RecurrenceID: &recID,
	}
	store.bills[bill.ID] = *bill
	return bill, rec
}

func paidUpdate() BillUpdate {
	status := models.BillStatusPaid
	return BillUpdate{Status: &status}
}

func TestUpdateWithoutStatusChangeDoesNotTrigger(t *testing.T) {
	store := newFakeStore()
	seedLinkedBill(store)
	svc := newTestService(store)

	desc := "updated description"
	_, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", BillUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if rollover != nil {
		t.Error("expected no rollover for a description-only update")
	}
	if len(store.bills) != 1 {
		t.Errorf("bill count = %d, want 1", len(store.bills))
	}
	rec := store.recurrences["rec-1"]
	if !rec.NextDueDate.Equal(date(2024, 3, 1)) {
		t.Error("recurrence schedule pointer moved without a paid transition")
	}
}

func TestMarkPaidMaterializesExactlyOneBill(t *testing.T) {
	store := newFakeStore()
	seedLinkedBill(store)
	svc := newTestService(store)

	updated, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Status != models.BillStatusPaid {
		t.Errorf("status = %q, want paid", updated.Status)
	}
	if updated.PaidAt == nil {
		t.Error("paid bill must carry paid_at")
	}

	if rollover == nil || rollover.Bill == nil {
		t.Fatal("expected a materialized next occurrence")
	}
	if !rollover.Bill.DueDate.Equal(date(2024, 3, 1)) {
		t.Errorf("next occurrence due = %v, want 2024-03-01", rollover.Bill.DueDate)
	}
	if rollover.Bill.Status != models.BillStatusOpen {
		t.Errorf("next occurrence status = %q, want open", rollover.Bill.Status)
	}

	rec := store.recurrences["rec-1"]
	if !rec.NextDueDate.Equal(date(2024, 4, 1)) {
		t.Errorf("recurrence next due = %v, want 2024-04-01", rec.NextDueDate)
	}
	if rec.Status != models.RecurrenceStatusActive {
		t.Errorf("recurrence status = %q, want active", rec.Status)
	}
	if len(store.bills) != 2 {
		t.Errorf("bill count = %d, want 2", len(store.bills))
	}
}

func TestMarkPaidOnEndDateCompletesRecurrence(t *testing.T) {
	store := newFakeStore()
	_, rec := seedLinkedBill(store)
	end := date(2024, 3, 1)
	rec.EndDate = &end
	store.recurrences[rec.ID] = *rec
	svc := newTestService(store)

	_, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if rollover == nil || rollover.Bill == nil {
		t.Fatal("bill due exactly on the end date must still be materialized")
	}
	got := store.recurrences["rec-1"]
	if got.Status != models.RecurrenceStatusCompleted {
		t.Errorf("recurrence status = %q, want completed", got.Status)
	}
}

func TestMarkPaidPastEndDateMaterializesNothing(t *testing.T) {
	store := newFakeStore()
	_, rec := seedLinkedBill(store)
	rec.NextDueDate = date(2024, 5, 1)
	end := date(2024, 4, 1)
	rec.EndDate = &end
	store.recurrences[rec.ID] = *rec
	svc := newTestService(store)

	_, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if rollover == nil {
		t.Fatal("expected recurrence transition to be reported")
	}
	if rollover.Bill != nil {
		t.Error("no bill may be materialized past the end date")
	}
	got := store.recurrences["rec-1"]
	if got.Status != models.RecurrenceStatusCompleted {
		t.Errorf("recurrence status = %q, want completed", got.Status)
	}
	if len(store.bills) != 1 {
		t.Errorf("bill count = %d, want 1", len(store.bills))
	}
}

func TestDoubleMarkPaidRollsOverOnce(t *testing.T) {
	store := newFakeStore()
	seedLinkedBill(store)
	svc := newTestService(store)

	if _, _, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate()); err != nil {
		t.Fatalf("first Update() error = %v", err)
	}
	// The repeat arrives after the first committed: the bill is already
	// paid, so there is no transition and no second materialization.
	_, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if err != nil {
		t.Fatalf("second Update() error = %v", err)
	}

	if rollover != nil {
		t.Error("second mark-paid must not roll over again")
	}
	if len(store.bills) != 2 {
		t.Errorf("bill count = %d, want 2 (original + one occurrence)", len(store.bills))
	}
}

func TestStaleSnapshotLosesStatusGuard(t *testing.T) {
	store := newFakeStore()
	seedLinkedBill(store)
	svc := newTestService(store)

	if _, _, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate()); err != nil {
		t.Fatalf("first Update() error = %v", err)
	}

	// Simulate the interleaved race: the loser read the bill while it was
	// still open, but the row has moved to paid underneath it.
	store.onFindBill = func(b *models.Bill) {
		b.Status = models.BillStatusOpen
		b.PaidAt = nil
	}
	_, _, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(store.bills) != 2 {
		t.Errorf("bill count = %d, want 2", len(store.bills))
	}
}

func TestMarkPaidWithForeignRecurrenceIsSilentNoop(t *testing.T) {
	store := newFakeStore()
	bill, rec := seedLinkedBill(store)
	rec.OwnerID = "someone-else"
	store.recurrences[rec.ID] = *rec
	store.bills[bill.ID] = *bill
	svc := newTestService(store)

	updated, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Status != models.BillStatusPaid {
		t.Error("paid update itself must still apply")
	}
	if rollover != nil {
		t.Error("foreign recurrence must behave like a missing one")
	}
	if len(store.bills) != 1 {
		t.Errorf("bill count = %d, want 1", len(store.bills))
	}
}

func TestMarkPaidWithPausedRecurrenceIsSilentNoop(t *testing.T) {
	store := newFakeStore()
	_, rec := seedLinkedBill(store)
	rec.Status = models.RecurrenceStatusPaused
	store.recurrences[rec.ID] = *rec
	svc := newTestService(store)

	_, rollover, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if rollover != nil {
		t.Error("paused recurrence must not roll over")
	}
	rec2 := store.recurrences["rec-1"]
	if !rec2.NextDueDate.Equal(date(2024, 3, 1)) {
		t.Error("paused recurrence schedule pointer must not move")
	}
}

func TestReopeningPaidBillClearsPaidAt(t *testing.T) {
	store := newFakeStore()
	seedLinkedBill(store)
	svc := newTestService(store)

	if _, _, err := svc.Update(context.Background(), "user-1", "bill-1", paidUpdate()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	open := models.BillStatusOpen
	updated, _, err := svc.Update(context.Background(), "user-1", "bill-1", BillUpdate{Status: &open})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.PaidAt != nil {
		t.Error("paid_at must be nil whenever status is not paid")
	}
}

func TestUpdateForeignBillIsNotFound(t *testing.T) {
	store := newFakeStore()
	seedLinkedBill(store)
	svc := newTestService(store)

	_, _, err := svc.Update(context.Background(), "intruder", "bill-1", paidUpdate())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a foreign bill, got %v", err)
	}
}
