package storage

import (
	"context"
	"errors"
	"time"

	"github.com/finloop/finloop-api/models"
)

// ErrNotFound covers both a missing row and a row owned by someone else.
// Callers cannot tell the two apart, so a foreign id never leaks existence.
var ErrNotFound = errors.New("record not found")

// ErrConflict means a conditional update lost: the row's status no longer
// matched the expected pre-transition value.
var ErrConflict = errors.New("concurrent update conflict")

type BillFilter struct {
	Status models.BillStatus
	From   *time.Time
	To     *time.Time
}

// BillStore is the persistence surface the rollover path runs against.
// Every operation is scoped by owner; foreign rows behave like missing rows.
type BillStore interface {
	FindBill(ctx context.Context, id, ownerID string) (*models.Bill, error)
	ListBills(ctx context.Context, ownerID string, f BillFilter) ([]models.Bill, error)
	CreateBill(ctx context.Context, b *models.Bill) error
	// UpdateBill persists b only if the row's current status still equals
	// expected. Returns ErrConflict when the guard fails.
	UpdateBill(ctx context.Context, b *models.Bill, expected models.BillStatus) error
	DeleteBill(ctx context.Context, id, ownerID string) error

	FindRecurrence(ctx context.Context, id, ownerID string) (*models.BillRecurrence, error)
	ListRecurrences(ctx context.Context, ownerID string) ([]models.BillRecurrence, error)
	CreateRecurrence(ctx context.Context, r *models.BillRecurrence) error
	UpdateRecurrence(ctx context.Context, r *models.BillRecurrence) error
	DeleteRecurrence(ctx context.Context, id, ownerID string) error

	// InTx runs fn against a transactional view of the store. fn returning
	// an error rolls the whole sequence back.
	InTx(ctx context.Context, fn func(BillStore) error) error
}
