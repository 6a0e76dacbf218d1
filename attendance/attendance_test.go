package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/store/sqlite"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTracker(t *testing.T, start time.Time) (*attendance.Tracker, *clock) {
	t.Helper()
	store, err := sqlite.NewTenant(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := &clock{now: start}
	tr := attendance.NewTracker(store, "org-1", nil)
	tr.SetClock(c.Now)
	return tr, c
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

var office = &attendance.Location{Longitude: 77.59, Latitude: 12.97}

func TestClockIn_RequiresLocation(t *testing.T) {
	tr, _ := newTracker(t, at(10, 9, 0))

	_, err := tr.ClockIn(context.Background(), attendance.ClockInInput{UserID: "u1"})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = tr.ClockIn(context.Background(), attendance.ClockInInput{UserID: "u1", Location: &attendance.Location{}})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestClockIn_TwiceWithoutClockOut(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t, at(10, 9, 0))

	s, err := tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u1", Location: office, Notes: "office"})
	require.NoError(t, err)
	assert.True(t, s.Open())
	assert.Equal(t, "2025-03-10", s.Day.String())

	_, err = tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u1", Location: office})
	assert.ErrorIs(t, err, generic.ErrAlreadyClockedIn)

	// Other users are unaffected
	_, err = tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u2", Location: office})
	assert.NoError(t, err)
}

func TestClockOut_WithoutOpenSession(t *testing.T) {
	tr, _ := newTracker(t, at(10, 9, 0))

	_, _, err := tr.ClockOut(context.Background(), "u1")
	assert.ErrorIs(t, err, generic.ErrNoOpenSession)
}

func TestClockOut_SumsTheDaysSessions(t *testing.T) {
	ctx := context.Background()
	tr, c := newTracker(t, at(10, 9, 0))

	// GIVEN: a morning session of 3.5h
	_, err := tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u1", Location: office})
	require.NoError(t, err)
	c.Set(at(10, 12, 30))
	s, total, err := tr.ClockOut(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, s.Open())
	assert.InDelta(t, 3.5, s.WorkingHours, 0.0001)
	assert.InDelta(t, 3.5, total, 0.0001)

	// WHEN: a second session of 2h
	c.Set(at(10, 13, 0))
	_, err = tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u1", Location: office})
	require.NoError(t, err)
	c.Set(at(10, 15, 0))
	_, total, err = tr.ClockOut(ctx, "u1")

	// THEN: the day total covers both
	require.NoError(t, err)
	assert.InDelta(t, 5.5, total, 0.0001)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	tr, c := newTracker(t, at(10, 9, 0))

	st, err := tr.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StateNotClockedIn, st.State)
	assert.Nil(t, st.ClockIn)

	_, err = tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u1", Location: office})
	require.NoError(t, err)
	st, err = tr.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StateClockedIn, st.State)
	require.NotNil(t, st.ClockIn)
	assert.True(t, at(10, 9, 0).Equal(*st.ClockIn))

	c.Set(at(10, 11, 0))
	_, _, err = tr.ClockOut(ctx, "u1")
	require.NoError(t, err)
	st, err = tr.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StateClockedOut, st.State)
	assert.InDelta(t, 2.0, st.TotalHours, 0.0001)
}

func TestSummary_ClassifiesDays(t *testing.T) {
	ctx := context.Background()
	tr, c := newTracker(t, at(8, 9, 0))

	work := func(day, fromHour, toHour int) {
		c.Set(at(day, fromHour, 0))
		_, err := tr.ClockIn(ctx, attendance.ClockInInput{UserID: "u1", Location: office})
		require.NoError(t, err)
		c.Set(at(day, toHour, 0))
		_, _, err = tr.ClockOut(ctx, "u1")
		require.NoError(t, err)
	}

	// GIVEN: 9h on the 8th, 5h on the 9th, nothing on the 10th
	work(8, 9, 18)
	work(9, 9, 14)
	c.Set(at(10, 8, 0))

	// WHEN
	sum, err := tr.Summary(ctx, "u1", 3)
	require.NoError(t, err)

	// THEN: newest day first
	require.Len(t, sum.Days, 3)
	assert.Equal(t, "2025-03-10", sum.Days[0].Date.String())
	assert.Equal(t, attendance.DayAbsent, sum.Days[0].Status)
	assert.True(t, sum.Days[0].IsToday)
	assert.Equal(t, attendance.DayHalf, sum.Days[1].Status)
	assert.Equal(t, attendance.DayPresent, sum.Days[2].Status)

	assert.Equal(t, 1, sum.Present)
	assert.Equal(t, 1, sum.HalfDays)
	assert.Equal(t, 1, sum.Absent)
	assert.InDelta(t, 14.0, sum.TotalHours, 0.0001)
	assert.Equal(t, "2025-03-08", sum.From.String())
	assert.Zero(t, sum.Days[0].TotalHours)
}

func TestSummary_DefaultAndBounds(t *testing.T) {
	tr, _ := newTracker(t, at(10, 9, 0))

	sum, err := tr.Summary(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, sum.Days, attendance.DefaultSummaryDays)
	assert.Equal(t, attendance.DefaultSummaryDays, sum.Absent)

	_, err = tr.Summary(context.Background(), "u1", 367)
	assert.ErrorIs(t, err, generic.ErrValidation)
	_, err = tr.Summary(context.Background(), "u1", -1)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestSessionDuration(t *testing.T) {
	out := at(10, 17, 30)
	closed := attendance.Session{ClockIn: at(10, 9, 0), ClockOut: &out}
	assert.Equal(t, 8*time.Hour+30*time.Minute, attendance.SessionDuration(closed))
	assert.Zero(t, attendance.SessionDuration(attendance.Session{ClockIn: at(10, 9, 0)}))
}
