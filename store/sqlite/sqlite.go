/*
Package sqlite provides the SQLite-backed stores.

PURPOSE:
  Two kinds of database:
  - MasterStore: the shared control database (organizations, platform
    admins). One per process.
  - TenantStore: one file per organization holding every tenant-scoped
    table (users, leave, holidays, attendance). Opened only through the
    Provisioner, which the tenant.Registry drives.

KEY TABLES (tenant):
  users:               Accounts, unique email
  leave_requests:      Never deleted; overlap query on (user_id, start, end)
  leave_balances:      Unique (user_id, year); version column for
                       optimistic concurrency
  leave_policies:      Unique (org_id, year)
  holidays:            Unique (date, title)
  attendance_sessions: Partial unique index enforcing one open session
                       per (user_id, day)

CONCURRENCY:
  Writers are serialized through a mutex per database; readers go straight
  to the pool (WAL mode). Transactions run under the same mutex. In-memory
  databases are pinned to a single connection so every query sees the same
  database.

FORMATS:
  Calendar dates are TEXT YYYY-MM-DD. Timestamps are TEXT with fixed
  nanosecond width in UTC so they sort lexically. Decimals are TEXT.

USAGE:
  master, err := sqlite.NewMaster(filepath.Join(dataDir, "master.db"))
  prov := sqlite.NewProvisioner(dataDir)
  registry := tenant.NewRegistry(master, prov, logger)

MIGRATION:
  Schema is auto-migrated on open.

SEE ALSO:
  - tenant/registry.go: Drives the Provisioner
  - store/postgres: Alternative master store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/warp/hrms/generic"
)

const memoryPath = ":memory:"

// timeLayout keeps every timestamp the same width so ORDER BY on the TEXT
// column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func open(path, schema string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if path == memoryPath {
		dsn = path + "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func parseDate(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}
	}
	return tp
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
