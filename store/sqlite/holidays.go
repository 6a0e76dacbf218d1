package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/hrms/generic"
)

const holidayColumns = `id, title, date, description, created_by, updated_by, created_at, updated_at`

func (q queries) CreateHoliday(ctx context.Context, h generic.Holiday) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO holidays (`+holidayColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Title, h.Date.String(), nullString(h.Description),
		nullString(h.CreatedBy), nullString(h.UpdatedBy),
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "holiday", Message: fmt.Sprintf("%q already exists on %s", h.Title, h.Date)}
		}
		return fmt.Errorf("failed to create holiday: %w", err)
	}
	return nil
}

func (q queries) UpdateHoliday(ctx context.Context, h generic.Holiday) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE holidays SET title = ?, date = ?, description = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		h.Title, h.Date.String(), nullString(h.Description), nullString(h.UpdatedBy),
		formatTime(h.UpdatedAt), h.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "holiday", ExistingID: h.ID, Message: fmt.Sprintf("%q already exists on %s", h.Title, h.Date)}
		}
		return fmt.Errorf("failed to update holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "holiday", ID: h.ID}
	}
	return nil
}

func (q queries) DeleteHoliday(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "holiday", ID: id}
	}
	return nil
}

func (q queries) GetHoliday(ctx context.Context, id string) (*generic.Holiday, error) {
	h, err := scanHoliday(q.q.QueryRowContext(ctx, `SELECT `+holidayColumns+` FROM holidays WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// HolidaysBetween returns holidays with from <= date <= to, in date order.
func (q queries) HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+holidayColumns+` FROM holidays
		WHERE date >= ? AND date <= ?
		ORDER BY date, title`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHoliday(row rowScanner) (generic.Holiday, error) {
	var (
		h                               generic.Holiday
		date, createdAt, updatedAt      string
		description, createdBy, updated sql.NullString
	)
	err := row.Scan(&h.ID, &h.Title, &date, &description, &createdBy, &updated, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return h, err
	}
	if err != nil {
		return h, fmt.Errorf("failed to scan holiday: %w", err)
	}
	h.Date = parseDate(date)
	h.Description = description.String
	h.CreatedBy = createdBy.String
	h.UpdatedBy = updated.String
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)
	return h, nil
}
