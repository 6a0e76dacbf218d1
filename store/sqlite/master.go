package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/tenant"
	"github.com/warp/hrms/user"
)

const masterSchema = `
	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE,
		contact_email TEXT NOT NULL,
		phone TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		plan TEXT NOT NULL DEFAULT 'free',
		subscription_status TEXT NOT NULL DEFAULT 'active',
		subscription_start TEXT,
		subscription_end TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS platform_admins (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
`

// MasterStore is the shared control database. It implements
// tenant.Directory and user.PlatformAdminStore.
type MasterStore struct {
	db *sql.DB
	mu sync.Mutex
}

var (
	_ tenant.Directory        = (*MasterStore)(nil)
	_ user.PlatformAdminStore = (*MasterStore)(nil)
)

// NewMaster opens (and migrates) the master database at path. Use
// ":memory:" for tests.
func NewMaster(path string) (*MasterStore, error) {
	db, err := open(path, masterSchema)
	if err != nil {
		return nil, err
	}
	return &MasterStore{db: db}, nil
}

func (s *MasterStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

const organizationColumns = `id, name, slug, contact_email, phone, active, plan,
	subscription_status, subscription_start, subscription_end, created_at, updated_at`

func (s *MasterStore) CreateOrganization(ctx context.Context, o tenant.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (`+organizationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Slug, o.ContactEmail, nullString(o.Phone), boolInt(o.Active),
		o.Subscription.Plan, o.Subscription.Status,
		formatTime(o.Subscription.StartDate), formatTime(o.Subscription.EndDate),
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "organization", Message: "name or slug already in use"}
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// UpdateOrganization writes every field except slug, which is immutable.
func (s *MasterStore) UpdateOrganization(ctx context.Context, o tenant.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE organizations SET
			name = ?, contact_email = ?, phone = ?, active = ?, plan = ?,
			subscription_status = ?, subscription_start = ?, subscription_end = ?,
			updated_at = ?
		WHERE id = ?`,
		o.Name, o.ContactEmail, nullString(o.Phone), boolInt(o.Active), o.Subscription.Plan,
		o.Subscription.Status, formatTime(o.Subscription.StartDate), formatTime(o.Subscription.EndDate),
		formatTime(o.UpdatedAt), o.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Kind: "organization", ExistingID: o.ID, Message: "name already in use"}
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "organization", ID: o.ID}
	}
	return nil
}

func (s *MasterStore) GetOrganization(ctx context.Context, id string) (*tenant.Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id)
	return scanOrganizationRow(row)
}

func (s *MasterStore) GetOrganizationBySlug(ctx context.Context, slug string) (*tenant.Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE slug = ?`, slug)
	return scanOrganizationRow(row)
}

func (s *MasterStore) ListOrganizations(ctx context.Context) ([]tenant.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var out []tenant.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrganizationRow(row *sql.Row) (*tenant.Organization, error) {
	o, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrganization(row rowScanner) (tenant.Organization, error) {
	var (
		o                  tenant.Organization
		phone              sql.NullString
		active             int
		subStart, subEnd   sql.NullString
		createdAt, updated string
	)
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.ContactEmail, &phone, &active,
		&o.Subscription.Plan, &o.Subscription.Status, &subStart, &subEnd, &createdAt, &updated)
	if err == sql.ErrNoRows {
		return o, err
	}
	if err != nil {
		return o, fmt.Errorf("failed to scan organization: %w", err)
	}
	o.Phone = phone.String
	o.Active = active == 1
	if t := parseNullTime(subStart); t != nil {
		o.Subscription.StartDate = *t
	}
	if t := parseNullTime(subEnd); t != nil {
		o.Subscription.EndDate = *t
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updated)
	return o, nil
}

// =============================================================================
// PLATFORM ADMINS
// =============================================================================

// SavePlatformAdmin inserts or updates by email.
func (s *MasterStore) SavePlatformAdmin(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_admins (id, email, password_hash, first_name, last_name, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			password_hash = excluded.password_hash,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, boolInt(u.Active),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save platform admin: %w", err)
	}
	return nil
}

func (s *MasterStore) GetPlatformAdmin(ctx context.Context, email string) (*user.User, error) {
	var (
		u                  user.User
		active             int
		createdAt, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, active, created_at, updated_at
		FROM platform_admins WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &active, &createdAt, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform admin: %w", err)
	}
	u.Role = auth.RoleSuperAdmin
	u.Active = active == 1
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}
