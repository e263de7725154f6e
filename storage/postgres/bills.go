package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/storage"
)

const billColumns = `id, owner_id, kind, amount, currency, category, description,
	status, due_date, paid_at, COALESCE(notes, ''), recurrence_id, created_at, updated_at`

func scanBill(row interface{ Scan(...any) error }) (*models.Bill, error) {
	var b models.Bill
	var paidAt sql.NullTime
	var recurrenceID sql.NullString
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Kind, &b.Amount, &b.Currency, &b.Category,
		&b.Description, &b.Status, &b.DueDate, &paidAt, &b.Notes,
		&recurrenceID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		b.PaidAt = &t
	}
	if recurrenceID.Valid {
		id := recurrenceID.String
		b.RecurrenceID = &id
	}
	return &b, nil
}

func (s *Store) FindBill(ctx context.Context, id, ownerID string) (*models.Bill, error) {
	query := fmt.Sprintf(`SELECT %s FROM bills WHERE id = $1 AND owner_id = $2`, billColumns)
	b, err := scanBill(s.q.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bill: %w", err)
	}
	return b, nil
}

func (s *Store) ListBills(ctx context.Context, ownerID string, f storage.BillFilter) ([]models.Bill, error) {
	query := fmt.Sprintf(`SELECT %s FROM bills WHERE owner_id = $1`, billColumns)
	args := []any{ownerID}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(` AND due_date >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(` AND due_date <= $%d`, len(args))
	}
	query += ` ORDER BY due_date ASC, created_at ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	bills := []models.Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

func (s *Store) CreateBill(ctx context.Context, b *models.Bill) error {
	var paidAt any
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}
	var recurrenceID any
	if b.RecurrenceID != nil {
		recurrenceID = *b.RecurrenceID
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO bills (id, owner_id, kind, amount, currency, category, description,
			status, due_date, paid_at, notes, recurrence_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, b.ID, b.OwnerID, b.Kind, b.Amount, b.Currency, b.Category, b.Description,
		b.Status, b.DueDate, paidAt, b.Notes, recurrenceID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create bill: %w", err)
	}
	return nil
}

// UpdateBill writes b back conditionally: the row must still carry the
// expected status. A raced duplicate transition therefore affects zero rows
// and surfaces as ErrConflict instead of double-applying.
func (s *Store) UpdateBill(ctx context.Context, b *models.Bill, expected models.BillStatus) error {
	var paidAt any
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE bills
		SET kind = $1, amount = $2, category = $3, description = $4,
			status = $5, due_date = $6, paid_at = $7, notes = $8, updated_at = $9
		WHERE id = $10 AND owner_id = $11 AND status = $12
	`, b.Kind, b.Amount, b.Category, b.Description,
		b.Status, b.DueDate, paidAt, b.Notes, b.UpdatedAt,
		b.ID, b.OwnerID, expected)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	if n == 0 {
		// Either the row is gone or the status moved under us. Distinguish
		// so the caller can report 404 vs 409.
		var exists bool
		if err := s.q.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM bills WHERE id = $1 AND owner_id = $2)`,
			b.ID, b.OwnerID).Scan(&exists); err != nil {
			return fmt.Errorf("update bill: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

func (s *Store) DeleteBill(ctx context.Context, id, ownerID string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM bills WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
