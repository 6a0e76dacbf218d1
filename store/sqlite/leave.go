package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/leave"
)

// categoryColumns follows leave.Types order.
var categoryColumns = func() string {
	cols := make([]string, len(leave.Types))
	for i, t := range leave.Types {
		cols[i] = string(t)
	}
	return strings.Join(cols, ", ")
}()

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, user_id, org_id, start_date, end_date, leave_type, reason, status,
	rejection_reason, working_days, notify_to, approved_by, approved_at, created_at, updated_at`

func (q queries) CreateRequest(ctx context.Context, r leave.Request) error {
	notify, err := json.Marshal(r.NotifyTo)
	if err != nil {
		return fmt.Errorf("failed to encode notify list: %w", err)
	}
	_, err = q.q.ExecContext(ctx,
		`INSERT INTO leave_requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.OrgID, r.Period.Start.String(), r.Period.End.String(),
		string(r.Type), r.Reason, string(r.Status), nullString(r.RejectionReason), r.WorkingDays,
		string(notify), nullString(r.ApprovedBy), nullTime(r.ApprovedAt),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create leave request: %w", err)
	}
	return nil
}

// UpdateRequest writes the workflow fields. Dates, type and working days
// are fixed at creation.
func (q queries) UpdateRequest(ctx context.Context, r leave.Request) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE leave_requests SET
			status = ?, rejection_reason = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(r.Status), nullString(r.RejectionReason), nullString(r.ApprovedBy),
		nullTime(r.ApprovedAt), formatTime(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "leave request", ID: r.ID}
	}
	return nil
}

func (q queries) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	r, err := scanRequest(q.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q queries) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.Request, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	query := `SELECT ` + requestColumns + ` FROM leave_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	return q.queryRequests(ctx, query, args...)
}

// OverlappingRequests applies existing.start < new.end AND existing.end >
// new.start on YYYY-MM-DD text, which orders like the dates themselves.
func (q queries) OverlappingRequests(ctx context.Context, userID string, period generic.Period) ([]leave.Request, error) {
	return q.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE user_id = ?
		  AND status IN (?, ?)
		  AND start_date < ? AND end_date > ?
		ORDER BY start_date`,
		userID, string(leave.StatusPending), string(leave.StatusApproved),
		period.End.String(), period.Start.String(),
	)
}

func (q queries) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (leave.Request, error) {
	var (
		r                                 leave.Request
		start, end, leaveType, status     string
		rejection, notify, approvedBy, at sql.NullString
		createdAt, updatedAt              string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.OrgID, &start, &end, &leaveType, &r.Reason, &status,
		&rejection, &r.WorkingDays, &notify, &approvedBy, &at, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("failed to scan leave request: %w", err)
	}
	r.Period = generic.Period{Start: parseDate(start), End: parseDate(end)}
	r.Type = leave.Type(leaveType)
	r.Status = leave.Status(status)
	r.RejectionReason = rejection.String
	r.ApprovedBy = approvedBy.String
	r.ApprovedAt = parseNullTime(at)
	if notify.Valid && notify.String != "" && notify.String != "null" {
		if err := json.Unmarshal([]byte(notify.String), &r.NotifyTo); err != nil {
			return r, fmt.Errorf("failed to decode notify list: %w", err)
		}
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (q queries) GetBalance(ctx context.Context, userID string, year int) (*leave.Balance, error) {
	var (
		b                    leave.Balance
		createdAt, updatedAt string
	)
	values := make([]string, len(leave.Types))
	dest := []any{&b.ID, &b.UserID, &b.OrgID, &b.Year}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &b.Version, &createdAt, &updatedAt)

	err := q.q.QueryRowContext(ctx, `
		SELECT id, user_id, org_id, year, `+categoryColumns+`, version, created_at, updated_at
		FROM leave_balances WHERE user_id = ? AND year = ?`, userID, year,
	).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	for i, t := range leave.Types {
		v, err := decimal.NewFromString(values[i])
		if err != nil {
			return nil, fmt.Errorf("invalid %s balance %q: %w", t, values[i], err)
		}
		b.Set(t, v)
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func (q queries) CreateBalance(ctx context.Context, b leave.Balance) error {
	args := []any{b.ID, b.UserID, b.OrgID, b.Year}
	for _, t := range leave.Types {
		args = append(args, b.Get(t).String())
	}
	args = append(args, b.Version, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO leave_balances (id, user_id, org_id, year, `+categoryColumns+`, version, created_at, updated_at)
		VALUES (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "leave_balance", Message: fmt.Sprintf("balance for %s/%d already exists", b.UserID, b.Year)}
		}
		return fmt.Errorf("failed to create balance: %w", err)
	}
	return nil
}

// UpdateBalance is conditional on b.Version.
func (q queries) UpdateBalance(ctx context.Context, b leave.Balance) error {
	sets := make([]string, len(leave.Types))
	args := make([]any, 0, len(leave.Types)+3)
	for i, t := range leave.Types {
		sets[i] = string(t) + " = ?"
		args = append(args, b.Get(t).String())
	}
	args = append(args, formatTime(b.UpdatedAt), b.ID, b.Version)

	res, err := q.q.ExecContext(ctx, `
		UPDATE leave_balances SET `+strings.Join(sets, ", ")+`, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: balance %s at version %d", generic.ErrConcurrentModification, b.ID, b.Version)
	}
	return nil
}

// =============================================================================
// POLICIES
// =============================================================================

// SavePolicy upserts on (org_id, year).
func (q queries) SavePolicy(ctx context.Context, p leave.Policy) error {
	args := []any{p.ID, p.OrgID, p.Year}
	updates := make([]string, len(leave.Types))
	for i, t := range leave.Types {
		args = append(args, p.Allotment(t).String())
		updates[i] = string(t) + " = excluded." + string(t)
	}
	args = append(args, boolInt(p.Active), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO leave_policies (id, org_id, year, `+categoryColumns+`, active, created_at, updated_at)
		VALUES (`+placeholders(len(args))+`)
		ON CONFLICT(org_id, year) DO UPDATE SET
			`+strings.Join(updates, ", ")+`,
			active = excluded.active,
			updated_at = excluded.updated_at`, args...)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (q queries) GetPolicy(ctx context.Context, orgID string, year int) (*leave.Policy, error) {
	p, err := scanPolicy(q.q.QueryRowContext(ctx, `
		SELECT id, org_id, year, `+categoryColumns+`, active, created_at, updated_at
		FROM leave_policies WHERE org_id = ? AND year = ? AND active = 1`, orgID, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q queries) ListPolicies(ctx context.Context, orgID string) ([]leave.Policy, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, org_id, year, `+categoryColumns+`, active, created_at, updated_at
		FROM leave_policies WHERE org_id = ? ORDER BY year DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var out []leave.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPolicy(row rowScanner) (leave.Policy, error) {
	var (
		p                    leave.Policy
		active               int
		createdAt, updatedAt string
	)
	values := make([]string, len(leave.Types))
	dest := []any{&p.ID, &p.OrgID, &p.Year}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &active, &createdAt, &updatedAt)

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return p, err
		}
		return p, fmt.Errorf("failed to scan policy: %w", err)
	}

	p.Allotments = make(map[leave.Type]decimal.Decimal, len(leave.Types))
	for i, t := range leave.Types {
		v, err := decimal.NewFromString(values[i])
		if err != nil {
			return p, fmt.Errorf("invalid %s allotment %q: %w", t, values[i], err)
		}
		p.Allotments[t] = v
	}
	p.Active = active == 1
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
