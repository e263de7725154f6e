package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/services"
	"github.com/finloop/finloop-api/storage"
	"github.com/finloop/finloop-api/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Register()
	os.Exit(m.Run())
}

// billStoreStub is an in-memory BillStore for handler tests.
type billStoreStub struct {
	bills       map[string]models.Bill
	recurrences map[string]models.BillRecurrence
}

func newBillStoreStub() *billStoreStub {
	return &billStoreStub{
		bills:       make(map[string]models.Bill),
		recurrences: make(map[string]models.BillRecurrence),
	}
}

func (s *billStoreStub) FindBill(_ context.Context, id, ownerID string) (*models.Bill, error) {
	b, ok := s.bills[id]
	if !ok || b.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (s *billStoreStub) ListBills(_ context.Context, ownerID string, f storage.BillFilter) ([]models.Bill, error) {
	out := []models.Bill{}
	for _, b := range s.bills {
		if b.OwnerID != ownerID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *billStoreStub) CreateBill(_ context.Context, b *models.Bill) error {
	s.bills[b.ID] = *b
	return nil
}

func (s *billStoreStub) UpdateBill(_ context.Context, b *models.Bill, expected models.BillStatus) error {
	current, ok := s.bills[b.ID]
	if !ok || current.OwnerID != b.OwnerID {
		return storage.ErrNotFound
	}
	if current.Status != expected {
		return storage.ErrConflict
	}
	s.bills[b.ID] = *b
	return nil
}

func (s *billStoreStub) DeleteBill(_ context.Context, id, ownerID string) error {
	b, ok := s.bills[id]
	if !ok || b.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.bills, id)
	return nil
}

func (s *billStoreStub) FindRecurrence(_ context.Context, id, ownerID string) (*models.BillRecurrence, error) {
	r, ok := s.recurrences[id]
	if !ok || r.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *billStoreStub) ListRecurrences(_ context.Context, ownerID string) ([]models.BillRecurrence, error) {
	out := []models.BillRecurrence{}
	for _, r := range s.recurrences {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *billStoreStub) CreateRecurrence(_ context.Context, r *models.BillRecurrence) error {
	s.recurrences[r.ID] = *r
	return nil
}

func (s *billStoreStub) UpdateRecurrence(_ context.Context, r *models.BillRecurrence) error {
	if _, ok := s.recurrences[r.ID]; !ok {
		return storage.ErrNotFound
	}
	s.recurrences[r.ID] = *r
	return nil
}

func (s *billStoreStub) DeleteRecurrence(_ context.Context, id, ownerID string) error {
	r, ok := s.recurrences[id]
	if !ok || r.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.recurrences, id)
	return nil
}

func (s *billStoreStub) InTx(_ context.Context, fn func(storage.BillStore) error) error {
	return fn(s)
}

func newBillRouter(store *billStoreStub) *gin.Engine {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := services.NewBillService(store, log)
	h := NewBillHandler(svc, NewWSHandler())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
	})
	r.GET("/bills", h.GetBills)
	r.GET("/bills/:id", h.GetBill)
	r.POST("/bills", h.CreateBill)
	r.PUT("/bills/:id", h.UpdateBill)
	r.DELETE("/bills/:id", h.DeleteBill)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedStubBill(store *billStoreStub) {
	rec := models.BillRecurrence{
		ID:          "6f9619ff-8b86-4d01-b42d-00cf4fc964ff",
		OwnerID:     "user-1",
		Kind:        models.BillKindPayable,
		Amount:      decimal.RequireFromString("49.90"),
		Currency:    "EUR",
		Category:    "utilities",
		Frequency:   models.FrequencyMonthly,
		Interval:    1,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NextDueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:      models.RecurrenceStatusActive,
	}
	store.recurrences[rec.ID] = rec

	recID := rec.ID
	store.bills["bill-1"] = models.Bill{
		ID:           "bill-1",
		OwnerID:      "user-1",
		Kind:         models.BillKindPayable,
		Amount:       rec.Amount,
		Currency:     "EUR",
		Category:     "utilities",
		Status:       models.BillStatusOpen,
		DueDate:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		RecurrenceID: &recID,
	}
}

func TestCreateBill(t *testing.T) {
	store := newBillStoreStub()
	r := newBillRouter(store)

	w := doJSON(t, r, http.MethodPost, "/bills", gin.H{
		"kind":     "payable",
		"amount":   "120.00",
		"currency": "EUR",
		"category": "rent",
		"due_date": "2024-04-01",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}
	var bill models.Bill
	if err := json.Unmarshal(w.Body.Bytes(), &bill); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if bill.Status != models.BillStatusOpen {
		t.Errorf("status = %q, want open", bill.Status)
	}
	if len(store.bills) != 1 {
		t.Errorf("bill count = %d, want 1", len(store.bills))
	}
}

func TestCreateBillRejectsBadInput(t *testing.T) {
	r := newBillRouter(newBillStoreStub())

	tests := []struct {
		name string
		body gin.H
	}{
		{"negative amount", gin.H{"kind": "payable", "amount": "-5.00", "currency": "EUR", "category": "rent", "due_date": "2024-04-01"}},
		{"bad currency", gin.H{"kind": "payable", "amount": "5.00", "currency": "euro", "category": "rent", "due_date": "2024-04-01"}},
		{"bad date", gin.H{"kind": "payable", "amount": "5.00", "currency": "EUR", "category": "rent", "due_date": "04/01/2024"}},
		{"bad kind", gin.H{"kind": "invoice", "amount": "5.00", "currency": "EUR", "category": "rent", "due_date": "2024-04-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(t, r, http.MethodPost, "/bills", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetBillsRejectsUnknownStatusFilter(t *testing.T) {
	r := newBillRouter(newBillStoreStub())

	if w := doJSON(t, r, http.MethodGet, "/bills?status=archived", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetBillNotFound(t *testing.T) {
	r := newBillRouter(newBillStoreStub())

	if w := doJSON(t, r, http.MethodGet, "/bills/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateBillMarkPaidReturnsRollover(t *testing.T) {
	store := newBillStoreStub()
	seedStubBill(store)
	r := newBillRouter(store)

	w := doJSON(t, r, http.MethodPut, "/bills/bill-1", gin.H{"status": "paid"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Bill     models.Bill `json:"bill"`
		Rollover *struct {
			Bill       *models.Bill           `json:"bill"`
			Recurrence *models.BillRecurrence `json:"recurrence"`
		} `json:"rollover"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Bill.Status != models.BillStatusPaid {
		t.Errorf("bill status = %q, want paid", resp.Bill.Status)
	}
	if resp.Bill.PaidAt == nil {
		t.Error("paid bill must carry paid_at")
	}
	if resp.Rollover == nil || resp.Rollover.Bill == nil {
		t.Fatal("expected a rollover with the materialized occurrence")
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !resp.Rollover.Bill.DueDate.Equal(want) {
		t.Errorf("occurrence due = %v, want %v", resp.Rollover.Bill.DueDate, want)
	}
	if resp.Rollover.Recurrence == nil ||
		!resp.Rollover.Recurrence.NextDueDate.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("recurrence pointer did not advance to 2024-04-01")
	}
}

func TestUpdateBillWithoutStatusChangeHasNoRollover(t *testing.T) {
	store := newBillStoreStub()
	seedStubBill(store)
	r := newBillRouter(store)

	w := doJSON(t, r, http.MethodPut, "/bills/bill-1", gin.H{"notes": "pay from joint account"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["rollover"]; ok {
		t.Error("notes-only update must not carry a rollover")
	}
}

func TestUpdateBillRejectsUnknownStatus(t *testing.T) {
	store := newBillStoreStub()
	seedStubBill(store)
	r := newBillRouter(store)

	if w := doJSON(t, r, http.MethodPut, "/bills/bill-1", gin.H{"status": "settled"}); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteBill(t *testing.T) {
	store := newBillStoreStub()
	seedStubBill(store)
	r := newBillRouter(store)

	if w := doJSON(t, r, http.MethodDelete, "/bills/bill-1", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/bills/bill-1", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}
