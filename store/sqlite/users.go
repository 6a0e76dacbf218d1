package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/user"
)

const userColumns = `id, org_id, email, password_hash, first_name, last_name, phone, role, active,
	department, designation, employment_status, start_date, created_at, updated_at`

func (q queries) CreateUser(ctx context.Context, u user.User) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OrgID, u.Email, u.PasswordHash, u.FirstName, u.LastName, nullString(u.Phone),
		string(u.Role), boolInt(u.Active), nullString(u.Department), nullString(u.Designation),
		nullString(u.EmploymentStatus), startDate(u.StartDate),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "user", Message: "email already registered in this organization"}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (q queries) UpdateUser(ctx context.Context, u user.User) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET
			email = ?, password_hash = ?, first_name = ?, last_name = ?, phone = ?, role = ?,
			active = ?, department = ?, designation = ?, employment_status = ?, start_date = ?,
			updated_at = ?
		WHERE id = ?`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, nullString(u.Phone), string(u.Role),
		boolInt(u.Active), nullString(u.Department), nullString(u.Designation),
		nullString(u.EmploymentStatus), startDate(u.StartDate), formatTime(u.UpdatedAt), u.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "user", ExistingID: u.ID, Message: "email already registered in this organization"}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "user", ID: u.ID}
	}
	return nil
}

func (q queries) GetUser(ctx context.Context, id string) (*user.User, error) {
	return scanUserRow(q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (q queries) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return scanUserRow(q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (q queries) ListUsers(ctx context.Context) ([]user.User, error) {
	return q.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}

// SearchUsers matches active users by name or email, case-insensitively.
// The query is matched literally; % and _ are not wildcards.
func (q queries) SearchUsers(ctx context.Context, query string, limit int) ([]user.User, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	return q.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE active = 1 AND (first_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')
		ORDER BY first_name, last_name
		LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (q queries) CountUsers(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE id IN (`+placeholders(len(ids))+`)`, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (q queries) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id FROM users WHERE active = 1 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q queries) queryUsers(ctx context.Context, query string, args ...any) ([]user.User, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUserRow(row *sql.Row) (*user.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u                                 user.User
		role                              string
		active                            int
		phone, dept, desig, status, start sql.NullString
		createdAt, updatedAt              string
	)
	err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&phone, &role, &active, &dept, &desig, &status, &start, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return u, err
	}
	if err != nil {
		return u, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Phone = phone.String
	u.Role = auth.Role(role)
	u.Active = active == 1
	u.Department = dept.String
	u.Designation = desig.String
	u.EmploymentStatus = status.String
	if start.Valid && start.String != "" {
		d := parseDate(start.String)
		u.StartDate = &d
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

func startDate(d *generic.TimePoint) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func (s *TenantStore) CreateUser(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.CreateUser(ctx, u)
}

func (s *TenantStore) UpdateUser(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.UpdateUser(ctx, u)
}
