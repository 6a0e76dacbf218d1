package sqlite_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/leave"
	"github.com/warp/hrms/store/sqlite"
	"github.com/warp/hrms/user"
)

func newTenant(t *testing.T) *sqlite.TenantStore {
	t.Helper()
	s, err := sqlite.NewTenant(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *sqlite.TenantStore, email, first string, active bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	u := user.User{
		ID:           generic.NewID(),
		OrgID:        "org-1",
		Email:        email,
		PasswordHash: "x",
		FirstName:    first,
		Role:         auth.RoleEmployee,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestSessions_OneOpenPerUserPerDay(t *testing.T) {
	ctx := context.Background()
	s := newTenant(t)
	day := generic.NewTimePoint(2025, time.March, 10)
	clockIn := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	session := func() attendance.Session {
		return attendance.Session{
			ID: generic.NewID(), UserID: "u1", OrgID: "org-1", Day: day,
			ClockIn: clockIn, Status: attendance.DayPresent, CreatedAt: clockIn, UpdatedAt: clockIn,
		}
	}

	first := session()
	require.NoError(t, s.CreateSession(ctx, first))

	// A second open session is rejected by the index
	err := s.CreateSession(ctx, session())
	assert.ErrorIs(t, err, generic.ErrAlreadyClockedIn)

	// Once closed, a new one may open
	out := clockIn.Add(2 * time.Hour)
	first.ClockOut = &out
	first.WorkingHours = 2
	first.UpdatedAt = out
	require.NoError(t, s.CloseSession(ctx, first))
	require.NoError(t, s.CreateSession(ctx, session()))

	// Closing twice fails
	assert.ErrorIs(t, s.CloseSession(ctx, first), generic.ErrNoOpenSession)

	all, err := s.SessionsBetween(ctx, "u1", day, day)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].ClockOut)
	assert.True(t, out.Equal(*all[0].ClockOut))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_UniquePerDateAndTitle(t *testing.T) {
	ctx := context.Background()
	s := newTenant(t)
	date := generic.NewTimePoint(2025, time.December, 25)

	h := generic.Holiday{ID: generic.NewID(), Title: "Christmas", Date: date}
	require.NoError(t, s.CreateHoliday(ctx, h))

	dup := generic.Holiday{ID: generic.NewID(), Title: "Christmas", Date: date}
	assert.ErrorIs(t, s.CreateHoliday(ctx, dup), generic.ErrConflict)

	other := generic.Holiday{ID: generic.NewID(), Title: "Office closed", Date: date}
	require.NoError(t, s.CreateHoliday(ctx, other))

	got, err := s.HolidaysBetween(ctx, generic.StartOfYear(2025), generic.EndOfYear(2025))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.ErrorIs(t, s.DeleteHoliday(ctx, "missing"), generic.ErrNotFound)
}

// =============================================================================
// USERS
// =============================================================================

func TestUsers_CountSearchAndActiveIDs(t *testing.T) {
	ctx := context.Background()
	s := newTenant(t)
	alice := createUser(t, s, "alice@acme.com", "Alice", true)
	bob := createUser(t, s, "bob@acme.com", "Bob", true)
	createUser(t, s, "alina@acme.com", "Alina", false)

	n, err := s.CountUsers(ctx, []string{alice.ID, bob.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := s.SearchUsers(ctx, "ali", 3)
	require.NoError(t, err)
	require.Len(t, found, 1, "inactive users are not searchable")
	assert.Equal(t, alice.ID, found[0].ID)

	ids, err := s.ActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, ids)

	missing, err := s.GetUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	s := newTenant(t)
	createUser(t, s, "alice@acme.com", "Alice", true)

	now := time.Now().UTC()
	err := s.CreateUser(context.Background(), user.User{
		ID: generic.NewID(), Email: "alice@acme.com", PasswordHash: "x",
		Role: auth.RoleEmployee, Active: true, CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, generic.ErrConflict)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTenant(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx leave.Store) error {
		b := leave.Balance{ID: generic.NewID(), UserID: "u1", OrgID: "org-1", Year: 2025}
		b.Set(leave.TypePaid, decimal.NewFromInt(12))
		if err := tx.CreateBalance(ctx, b); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, err := s.GetBalance(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestRequests_OverlapIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	s := newTenant(t)
	now := time.Now().UTC()
	d := func(day int) generic.TimePoint { return generic.NewTimePoint(2025, time.August, day) }

	require.NoError(t, s.CreateRequest(ctx, leave.Request{
		ID: generic.NewID(), UserID: "u1", OrgID: "org-1", Type: leave.TypePaid,
		Period: generic.Period{Start: d(11), End: d(15)}, WorkingDays: 5, Reason: "trip",
		Status: leave.StatusPending, CreatedAt: now, UpdatedAt: now,
	}))

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"inside", 12, 13, 1},
		{"covering", 10, 20, 1},
		{"touching end", 15, 18, 0},
		{"touching start", 8, 11, 0},
		{"after", 18, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.OverlappingRequests(ctx, "u1", generic.Period{Start: d(tt.start), End: d(tt.end)})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

// =============================================================================
// MASTER + PROVISIONER
// =============================================================================

func TestMaster_PlatformAdminUpsert(t *testing.T) {
	ctx := context.Background()
	m, err := sqlite.NewMaster(":memory:")
	require.NoError(t, err)
	defer m.Close()

	missing, err := m.GetPlatformAdmin(ctx, "root@platform.io")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now().UTC()
	admin := user.User{ID: generic.NewID(), Email: "root@platform.io", PasswordHash: "h1", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, m.SavePlatformAdmin(ctx, admin))
	admin.PasswordHash = "h2"
	require.NoError(t, m.SavePlatformAdmin(ctx, admin))

	got, err := m.GetPlatformAdmin(ctx, "root@platform.io")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, auth.RoleSuperAdmin, got.Role)
}

func TestProvisioner_OneFilePerTenant(t *testing.T) {
	dir := t.TempDir()
	p := sqlite.NewProvisioner(dir)

	st, err := p.Open(context.Background(), "acme")
	require.NoError(t, err)
	defer st.Close()

	_, err = os.Stat(p.Path("acme"))
	assert.NoError(t, err)

	_, err = p.Open(context.Background(), "../escape")
	assert.Error(t, err)
}
