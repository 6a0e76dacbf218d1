/*
attendance.go - Clock-in / clock-out tracking

PURPOSE:
  Records working sessions for tenant users. A user may clock in and out
  several times a day; the day's hours are the sum of closed sessions.

INVARIANT:
  At most one open session (ClockOut == nil) per user per day. The store
  enforces it with a partial unique index, so two racing clock-ins cannot
  both succeed.

DAY CLASSIFICATION (Summary):
  total >= 8h  present
  total >= 4h  half-day
  otherwise    absent

SEE ALSO:
  - store/sqlite/attendance.go: Store implementation
  - report/attendance.go: PDF rendering of a Summary
*/
package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/warp/hrms/generic"
)

// Day states reported by Status.
const (
	StateNotClockedIn = "not_clocked_in"
	StateClockedIn    = "clocked_in"
	StateClockedOut   = "clocked_out"
)

// Day classifications used by Summary.
const (
	DayPresent = "present"
	DayHalf    = "half-day"
	DayAbsent  = "absent"
)

const (
	presentHours = 8.0
	halfDayHours = 4.0

	// DefaultSummaryDays is the window Summary uses when none is given.
	DefaultSummaryDays = 30
)

// Location is a GeoJSON-style point.
type Location struct {
	Longitude float64
	Latitude  float64
}

// Session is one clock-in / clock-out pair.
type Session struct {
	ID           string
	UserID       string
	OrgID        string
	Day          generic.TimePoint
	ClockIn      time.Time
	ClockOut     *time.Time
	WorkingHours float64
	Status       string
	Location     Location
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the session has not been clocked out yet.
func (s Session) Open() bool { return s.ClockOut == nil }

// Store persists sessions.
//
// CreateSession must fail with generic.ErrAlreadyClockedIn when the user
// already has an open session for s.Day. CloseSession must fail with
// generic.ErrNoOpenSession when the session was closed concurrently.
type Store interface {
	OpenSession(ctx context.Context, userID string, day generic.TimePoint) (*Session, error)
	CreateSession(ctx context.Context, s Session) error
	CloseSession(ctx context.Context, s Session) error
	SessionsBetween(ctx context.Context, userID string, from, to generic.TimePoint) ([]Session, error)
}

// ClockInInput is a clock-in request. Location is required.
type ClockInInput struct {
	UserID   string
	Location *Location
	Notes    string
}

// DayStatus summarises today's sessions for one user.
type DayStatus struct {
	State      string
	ClockIn    *time.Time
	TotalHours float64
}

// Tracker records attendance for one tenant.
type Tracker struct {
	store  Store
	orgID  string
	now    func() time.Time
	logger *slog.Logger
}

// NewTracker binds a tracker to a tenant's store.
func NewTracker(store Store, orgID string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, orgID: orgID, now: time.Now, logger: logger.With("component", "attendance")}
}

// ClockIn opens a session for today.
func (t *Tracker) ClockIn(ctx context.Context, in ClockInInput) (*Session, error) {
	if in.UserID == "" {
		return nil, generic.Invalid("user", "is required")
	}
	if in.Location == nil || (in.Location.Longitude == 0 && in.Location.Latitude == 0) {
		return nil, generic.Invalid("location", "longitude and latitude are required")
	}

	now := t.now().UTC()
	today := generic.DateOf(now)

	open, err := t.store.OpenSession(ctx, in.UserID, today)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, generic.ErrAlreadyClockedIn
	}

	s := Session{
		ID:        generic.NewID(),
		UserID:    in.UserID,
		OrgID:     t.orgID,
		Day:       today,
		ClockIn:   now,
		Status:    DayPresent,
		Location:  *in.Location,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.CreateSession(ctx, s); err != nil {
		return nil, err
	}
	t.logger.Info("clocked in", "user", in.UserID, "session", s.ID)
	return &s, nil
}

// ClockOut closes today's open session and returns it with the day's total.
func (t *Tracker) ClockOut(ctx context.Context, userID string) (*Session, float64, error) {
	now := t.now().UTC()
	today := generic.DateOf(now)

	s, err := t.store.OpenSession(ctx, userID, today)
	if err != nil {
		return nil, 0, err
	}
	if s == nil {
		return nil, 0, generic.ErrNoOpenSession
	}

	s.ClockOut = &now
	s.WorkingHours = Hours(s.ClockIn, now)
	s.UpdatedAt = now
	if err := t.store.CloseSession(ctx, *s); err != nil {
		return nil, 0, err
	}

	sessions, err := t.store.SessionsBetween(ctx, userID, today, today)
	if err != nil {
		return nil, 0, err
	}
	total := 0.0
	for _, other := range sessions {
		if !other.Open() {
			total += other.WorkingHours
		}
	}

	t.logger.Info("clocked out", "user", userID, "session", s.ID, "hours", s.WorkingHours)
	return s, total, nil
}

// Status reports today's state and hours.
func (t *Tracker) Status(ctx context.Context, userID string) (DayStatus, error) {
	today := generic.DateOf(t.now().UTC())
	sessions, err := t.store.SessionsBetween(ctx, userID, today, today)
	if err != nil {
		return DayStatus{}, err
	}
	if len(sessions) == 0 {
		return DayStatus{State: StateNotClockedIn}, nil
	}

	st := DayStatus{State: StateClockedOut}
	for _, s := range sessions {
		st.TotalHours += s.WorkingHours
		if s.Open() {
			clockIn := s.ClockIn
			st.State = StateClockedIn
			st.ClockIn = &clockIn
		}
	}
	return st, nil
}

// Hours converts elapsed wall time to fractional hours.
func Hours(from, to time.Time) float64 {
	return float64(to.Sub(from).Milliseconds()) / 3_600_000
}
