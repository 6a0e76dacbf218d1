/*
Package postgres provides a PostgreSQL master store.

PURPOSE:
  Alternative to sqlite.MasterStore for deployments that keep the shared
  control data (organizations, platform admins) in PostgreSQL. Tenant
  databases stay in SQLite files either way.

  Selected when MASTER_DATABASE_URL starts with postgres:// or
  postgresql://.

SEE ALSO:
  - store/sqlite/master.go: Same contract on SQLite
  - tenant/organization.go: Directory interface
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/tenant"
	"github.com/warp/hrms/user"
)

const schema = `
	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE,
		contact_email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		plan TEXT NOT NULL DEFAULT 'free',
		subscription_status TEXT NOT NULL DEFAULT 'active',
		subscription_start TIMESTAMPTZ,
		subscription_end TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS platform_admins (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
`

const uniqueViolation = "23505"

// MasterStore implements tenant.Directory and user.PlatformAdminStore on a
// pgx pool.
type MasterStore struct {
	pool *pgxpool.Pool
}

var (
	_ tenant.Directory        = (*MasterStore)(nil)
	_ user.PlatformAdminStore = (*MasterStore)(nil)
)

// Connect opens a pool and migrates the schema.
func Connect(ctx context.Context, url string) (*MasterStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConns = 10
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &MasterStore{pool: pool}, nil
}

func (s *MasterStore) Close() error {
	s.pool.Close()
	return nil
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

const organizationColumns = `id, name, slug, contact_email, phone, active, plan,
	subscription_status, subscription_start, subscription_end, created_at, updated_at`

func (s *MasterStore) CreateOrganization(ctx context.Context, o tenant.Organization) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO organizations (`+organizationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.Name, o.Slug, o.ContactEmail, o.Phone, o.Active, o.Subscription.Plan,
		o.Subscription.Status, o.Subscription.StartDate, o.Subscription.EndDate,
		o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &generic.ConflictError{Kind: "organization", Message: "name or slug already in use"}
	}
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (s *MasterStore) UpdateOrganization(ctx context.Context, o tenant.Organization) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE organizations SET
			name = $1, contact_email = $2, phone = $3, active = $4, plan = $5,
			subscription_status = $6, subscription_start = $7, subscription_end = $8,
			updated_at = $9
		WHERE id = $10`,
		o.Name, o.ContactEmail, o.Phone, o.Active, o.Subscription.Plan,
		o.Subscription.Status, o.Subscription.StartDate, o.Subscription.EndDate,
		o.UpdatedAt, o.ID,
	)
	if isUniqueViolation(err) {
		return &generic.ConflictError{Kind: "organization", ExistingID: o.ID, Message: "name already in use"}
	}
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &generic.NotFoundError{Kind: "organization", ID: o.ID}
	}
	return nil
}

func (s *MasterStore) GetOrganization(ctx context.Context, id string) (*tenant.Organization, error) {
	return s.getOrganization(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
}

func (s *MasterStore) GetOrganizationBySlug(ctx context.Context, slug string) (*tenant.Organization, error) {
	return s.getOrganization(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE slug = $1`, slug)
}

func (s *MasterStore) getOrganization(ctx context.Context, query string, arg string) (*tenant.Organization, error) {
	o, err := scanOrganization(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

func (s *MasterStore) ListOrganizations(ctx context.Context) ([]tenant.Organization, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var out []tenant.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrganization(row pgx.Row) (tenant.Organization, error) {
	var (
		o                tenant.Organization
		subStart, subEnd *time.Time
	)
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.ContactEmail, &o.Phone, &o.Active,
		&o.Subscription.Plan, &o.Subscription.Status, &subStart, &subEnd, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if subStart != nil {
		o.Subscription.StartDate = *subStart
	}
	if subEnd != nil {
		o.Subscription.EndDate = *subEnd
	}
	return o, nil
}

// =============================================================================
// PLATFORM ADMINS
// =============================================================================

func (s *MasterStore) SavePlatformAdmin(ctx context.Context, u user.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO platform_admins (id, email, password_hash, first_name, last_name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Active, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save platform admin: %w", err)
	}
	return nil
}

func (s *MasterStore) GetPlatformAdmin(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, active, created_at, updated_at
		FROM platform_admins WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform admin: %w", err)
	}
	u.Role = auth.RoleSuperAdmin
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
