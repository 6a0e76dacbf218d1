package generic

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// =============================================================================
// TIME POINT - A calendar date with time-of-day stripped
// =============================================================================

// TimePoint is a calendar day. Every constructor normalizes to midnight UTC
// so holiday dates and iteration dates always compare at day granularity.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar date of t in t's own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or a full RFC3339 timestamp.
func ParseDate(s string) (TimePoint, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return DateOf(tp.normalize().AddDate(0, 0, n)) }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Weekday() time.Weekday { return tp.normalize().Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) String() string        { return tp.normalize().Format(DateLayout) }

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }

// =============================================================================
// HOLIDAY CALENDAR - Tenant holidays
// =============================================================================

// Holiday is one entry of a tenant's holiday calendar. Holidays never count
// as working days.
type Holiday struct {
	ID          string
	Title       string
	Date        TimePoint
	Description string
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HolidayCalendar provides holiday lookup for one tenant.
type HolidayCalendar interface {
	// HolidaysBetween returns holidays with from <= date <= to.
	HolidaysBetween(ctx context.Context, from, to TimePoint) ([]Holiday, error)
}

// HolidayDates projects holidays to their dates.
func HolidayDates(holidays []Holiday) []TimePoint {
	dates := make([]TimePoint, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return dates
}
