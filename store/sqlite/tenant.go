package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/leave"
	"github.com/warp/hrms/tenant"
)

const tenantSchema = `
	-- Users
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		active INTEGER NOT NULL DEFAULT 1,
		department TEXT,
		designation TEXT,
		employment_status TEXT,
		start_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Leave requests (never deleted)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		rejection_reason TEXT,
		working_days INTEGER NOT NULL,
		notify_to TEXT,
		approved_by TEXT,
		approved_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap check (hot path)
	CREATE INDEX IF NOT EXISTS idx_leave_requests_user_range
		ON leave_requests(user_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	-- Balances: one row per user per year
	CREATE TABLE IF NOT EXISTS leave_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		paid TEXT NOT NULL DEFAULT '0',
		sick TEXT NOT NULL DEFAULT '0',
		emergency TEXT NOT NULL DEFAULT '0',
		maternity TEXT NOT NULL DEFAULT '0',
		paternity TEXT NOT NULL DEFAULT '0',
		unpaid TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, year)
	);

	-- Policies: one per organization per year
	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		paid TEXT NOT NULL DEFAULT '0',
		sick TEXT NOT NULL DEFAULT '0',
		emergency TEXT NOT NULL DEFAULT '0',
		maternity TEXT NOT NULL DEFAULT '0',
		paternity TEXT NOT NULL DEFAULT '0',
		unpaid TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(org_id, year)
	);

	-- Holiday calendar
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT,
		created_by TEXT,
		updated_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique ON holidays(date, title);

	-- Attendance
	CREATE TABLE IF NOT EXISTS attendance_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		day TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT,
		working_hours REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'present',
		longitude REAL NOT NULL,
		latitude REAL NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_user_day
		ON attendance_sessions(user_id, day);

	-- CRITICAL: at most one open session per user per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_one_open
		ON attendance_sessions(user_id, day) WHERE clock_out IS NULL;
`

// queries holds every tenant query. It runs against the pool or against
// a transaction depending on q.
type queries struct {
	q querier
}

// TenantStore is one tenant's database. Reads are promoted from queries;
// writes are redefined below to take the writer lock.
type TenantStore struct {
	queries
	db *sql.DB
	mu sync.Mutex
}

var _ tenant.Storage = (*TenantStore)(nil)

// NewTenant opens (and migrates) a tenant database at path.
func NewTenant(path string) (*TenantStore, error) {
	db, err := open(path, tenantSchema)
	if err != nil {
		return nil, err
	}
	return &TenantStore{queries: queries{q: db}, db: db}, nil
}

func (s *TenantStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one transaction. fn must use only the Store it is
// given.
func (s *TenantStore) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{queries{q: tx}}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore is the transaction-scoped view handed to WithTx callbacks.
type txStore struct {
	queries
}

func (ts *txStore) WithTx(_ context.Context, fn func(leave.Store) error) error {
	return fn(ts)
}

// =============================================================================
// SERIALIZED WRITES
// =============================================================================

func (s *TenantStore) CreateRequest(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.CreateRequest(ctx, r)
}

func (s *TenantStore) UpdateRequest(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.UpdateRequest(ctx, r)
}

func (s *TenantStore) CreateBalance(ctx context.Context, b leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.CreateBalance(ctx, b)
}

func (s *TenantStore) UpdateBalance(ctx context.Context, b leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.UpdateBalance(ctx, b)
}

func (s *TenantStore) SavePolicy(ctx context.Context, p leave.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.SavePolicy(ctx, p)
}

func (s *TenantStore) CreateHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.CreateHoliday(ctx, h)
}

func (s *TenantStore) UpdateHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.UpdateHoliday(ctx, h)
}

func (s *TenantStore) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.DeleteHoliday(ctx, id)
}

func (s *TenantStore) CreateSession(ctx context.Context, a attendance.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.CreateSession(ctx, a)
}

func (s *TenantStore) CloseSession(ctx context.Context, a attendance.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.CloseSession(ctx, a)
}
