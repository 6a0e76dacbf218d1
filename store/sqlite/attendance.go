package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/generic"
)

const sessionColumns = `id, user_id, org_id, day, clock_in, clock_out, working_hours, status,
	longitude, latitude, notes, created_at, updated_at`

// CreateSession relies on idx_attendance_one_open to reject a second open
// session for the same day.
func (q queries) CreateSession(ctx context.Context, s attendance.Session) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO attendance_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.OrgID, s.Day.String(), formatTime(s.ClockIn), nullTime(s.ClockOut),
		s.WorkingHours, s.Status, s.Location.Longitude, s.Location.Latitude, nullString(s.Notes),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrAlreadyClockedIn
		}
		return fmt.Errorf("failed to create attendance session: %w", err)
	}
	return nil
}

// CloseSession only touches a session that is still open.
func (q queries) CloseSession(ctx context.Context, s attendance.Session) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE attendance_sessions SET clock_out = ?, working_hours = ?, updated_at = ?
		WHERE id = ? AND clock_out IS NULL`,
		nullTime(s.ClockOut), s.WorkingHours, formatTime(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to close attendance session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNoOpenSession
	}
	return nil
}

func (q queries) OpenSession(ctx context.Context, userID string, day generic.TimePoint) (*attendance.Session, error) {
	s, err := scanSession(q.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE user_id = ? AND day = ? AND clock_out IS NULL`,
		userID, day.String(),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q queries) SessionsBetween(ctx context.Context, userID string, from, to generic.TimePoint) ([]attendance.Session, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE user_id = ? AND day >= ? AND day <= ?
		ORDER BY clock_in`,
		userID, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance sessions: %w", err)
	}
	defer rows.Close()

	var out []attendance.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (attendance.Session, error) {
	var (
		s                                  attendance.Session
		day, clockIn, createdAt, updatedAt string
		clockOut, notes                    sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.OrgID, &day, &clockIn, &clockOut, &s.WorkingHours,
		&s.Status, &s.Location.Longitude, &s.Location.Latitude, &notes, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("failed to scan attendance session: %w", err)
	}
	s.Day = parseDate(day)
	s.ClockIn = parseTime(clockIn)
	s.ClockOut = parseNullTime(clockOut)
	s.Notes = notes.String
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return s, nil
}
