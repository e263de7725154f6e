package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finloop/finloop-api/models"
	"github.com/finloop/finloop-api/storage"
)

const recurrenceColumns = `id, owner_id, kind, amount, currency, category, description,
	COALESCE(notes, ''), frequency, interval_count, start_date, next_due_date, end_date,
	status, created_at, updated_at`

func scanRecurrence(row interface{ Scan(...any) error }) (*models.BillRecurrence, error) {
	var r models.BillRecurrence
	var endDate sql.NullTime
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Kind, &r.Amount, &r.Currency, &r.Category,
		&r.Description, &r.Notes, &r.Frequency, &r.Interval, &r.StartDate,
		&r.NextDueDate, &endDate, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		t := endDate.Time
		r.EndDate = &t
	}
	return &r, nil
}

func (s *Store) FindRecurrence(ctx context.Context, id, ownerID string) (*models.BillRecurrence, error) {
	query := fmt.Sprintf(`SELECT %s FROM bill_recurrences WHERE id = $1 AND owner_id = $2`, recurrenceColumns)
	r, err := scanRecurrence(s.q.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recurrence: %w", err)
	}
	return r, nil
}

func (s *Store) ListRecurrences(ctx context.Context, ownerID string) ([]models.BillRecurrence, error) {
	query := fmt.Sprintf(`SELECT %s FROM bill_recurrences WHERE owner_id = $1 ORDER BY next_due_date ASC`, recurrenceColumns)
	rows, err := s.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recurrences: %w", err)
	}
	defer rows.Close()

	recurrences := []models.BillRecurrence{}
	for rows.Next() {
		r, err := scanRecurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence: %w", err)
		}
		recurrences = append(recurrences, *r)
	}
	return recurrences, rows.Err()
}

func (s *Store) CreateRecurrence(ctx context.Context, r *models.BillRecurrence) error {
	var endDate any
	if r.EndDate != nil {
		endDate = *r.EndDate
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO bill_recurrences (id, owner_id, kind, amount, currency, category,
			description, notes, frequency, interval_count, start_date, next_due_date,
			end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, r.ID, r.OwnerID, r.Kind, r.Amount, r.Currency, r.Category, r.Description,
		r.Notes, r.Frequency, r.Interval, r.StartDate, r.NextDueDate,
		endDate, r.Status, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recurrence: %w", err)
	}
	return nil
}

// UpdateRecurrence guards the forward-only schedule pointer in SQL: a write
// that would move next_due_date backwards affects zero rows.
func (s *Store) UpdateRecurrence(ctx context.Context, r *models.BillRecurrence) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE bill_recurrences
		SET amount = $1, category = $2, description = $3, notes = $4,
			next_due_date = $5, status = $6, updated_at = $7
		WHERE id = $8 AND owner_id = $9 AND next_due_date <= $5
	`, r.Amount, r.Category, r.Description, r.Notes,
		r.NextDueDate, r.Status, r.UpdatedAt, r.ID, r.OwnerID)
	if err != nil {
		return fmt.Errorf("update recurrence: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recurrence: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.q.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM bill_recurrences WHERE id = $1 AND owner_id = $2)`,
			r.ID, r.OwnerID).Scan(&exists); err != nil {
			return fmt.Errorf("update recurrence: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

func (s *Store) DeleteRecurrence(ctx context.Context, id, ownerID string) error {
	// Bills keep their recurrence_id via ON DELETE SET NULL; deleting a
	// schedule never deletes the bills it produced.
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM bill_recurrences WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete recurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recurrence: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
