package attendance

import (
	"context"
	"time"

	"github.com/warp/hrms/generic"
)

// DaySummary is one calendar day of a Summary.
type DaySummary struct {
	Date       generic.TimePoint
	Status     string
	TotalHours float64
	Sessions   []Session
	IsToday    bool
}

// Summary covers the last N days for one user, newest day first.
type Summary struct {
	UserID     string
	From       generic.TimePoint
	To         generic.TimePoint
	Days       []DaySummary
	Present    int
	HalfDays   int
	Absent     int
	TotalHours float64
}

// Summary aggregates the last days (today included). Zero means
// DefaultSummaryDays.
func (t *Tracker) Summary(ctx context.Context, userID string, days int) (*Summary, error) {
	if days == 0 {
		days = DefaultSummaryDays
	}
	if days < 0 || days > 366 {
		return nil, generic.Invalid("days", "must be between 1 and 366")
	}

	today := generic.DateOf(t.now().UTC())
	from := today.AddDays(-(days - 1))

	sessions, err := t.store.SessionsBetween(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]Session, days)
	for _, s := range sessions {
		key := s.Day.String()
		byDay[key] = append(byDay[key], s)
	}

	out := &Summary{UserID: userID, From: from, To: today}
	for d := today; !d.Before(from); d = d.AddDays(-1) {
		ds := DaySummary{Date: d, Status: DayAbsent, Sessions: byDay[d.String()], IsToday: d.Equal(today)}
		for _, s := range ds.Sessions {
			ds.TotalHours += s.WorkingHours
		}
		ds.Status = classify(ds.TotalHours)

		switch ds.Status {
		case DayPresent:
			out.Present++
		case DayHalf:
			out.HalfDays++
		default:
			out.Absent++
		}
		out.TotalHours += ds.TotalHours
		out.Days = append(out.Days, ds)
	}
	return out, nil
}

func classify(hours float64) string {
	switch {
	case hours >= presentHours:
		return DayPresent
	case hours >= halfDayHours:
		return DayHalf
	}
	return DayAbsent
}

// SessionDuration is the closed length of s, or zero while it is open.
func SessionDuration(s Session) time.Duration {
	if s.ClockOut == nil {
		return 0
	}
	return s.ClockOut.Sub(s.ClockIn)
}
