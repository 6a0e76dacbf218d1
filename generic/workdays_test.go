package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

// =============================================================================
// WORKING DAY CALCULATOR
// =============================================================================

func TestCountWorkingDays_WeekWithHoliday(t *testing.T) {
	// GIVEN: Mon 2025-08-11 .. Fri 2025-08-15, Aug 15 is a holiday
	// WHEN: Counting working days
	// THEN: Four days remain

	n, err := generic.CountWorkingDays(
		day(2025, time.August, 11),
		day(2025, time.August, 15),
		[]generic.TimePoint{day(2025, time.August, 15)},
	)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCountWorkingDays_SingleDay(t *testing.T) {
	monday := day(2025, time.August, 11)
	saturday := day(2025, time.August, 16)

	n, err := generic.CountWorkingDays(monday, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "both endpoints are inclusive")

	n, err = generic.CountWorkingDays(saturday, saturday, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCountWorkingDays_SkipsWeekend(t *testing.T) {
	// Fri -> Mon spans a weekend
	n, err := generic.CountWorkingDays(day(2025, time.August, 15), day(2025, time.August, 18), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCountWorkingDays_InvalidRange(t *testing.T) {
	_, err := generic.CountWorkingDays(day(2025, time.August, 15), day(2025, time.August, 11), nil)
	assert.True(t, errors.Is(err, generic.ErrInvalidRange))
}

func TestCountWorkingDays_HolidayTimeOfDayIgnored(t *testing.T) {
	// Holiday stored with a time component still matches the calendar day.
	holiday := generic.TimePoint{Time: time.Date(2025, time.August, 13, 18, 30, 0, 0, time.UTC)}

	n, err := generic.CountWorkingDays(day(2025, time.August, 11), day(2025, time.August, 15), []generic.TimePoint{holiday})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCountWorkingDays_WeekendHolidayNotDoubleCounted(t *testing.T) {
	n, err := generic.CountWorkingDays(
		day(2025, time.August, 11),
		day(2025, time.August, 17),
		[]generic.TimePoint{day(2025, time.August, 16)},
	)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCountWorkingDays_MatchesBruteForceUpTo400Days(t *testing.T) {
	start := day(2024, time.January, 1)
	holidays := []generic.TimePoint{
		day(2024, time.January, 1),
		day(2024, time.July, 4),
		day(2024, time.December, 25),
		day(2025, time.January, 1),
	}
	isHoliday := map[string]bool{}
	for _, h := range holidays {
		isHoliday[h.String()] = true
	}

	for span := 0; span <= 400; span += 7 {
		end := start.AddDays(span)

		want := 0
		for i := 0; i <= span; i++ {
			d := start.AddDays(i)
			wd := d.Time.Weekday()
			if wd == time.Saturday || wd == time.Sunday || isHoliday[d.String()] {
				continue
			}
			want++
		}

		got, err := generic.CountWorkingDays(start, end, holidays)
		require.NoError(t, err)
		assert.Equal(t, want, got, "span %d days", span)
	}
}

func TestCountWorkingDays_Deterministic(t *testing.T) {
	start, end := day(2025, time.March, 1), day(2025, time.March, 31)
	first, err := generic.CountWorkingDays(start, end, nil)
	require.NoError(t, err)
	second, err := generic.CountWorkingDays(start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 21, first)
}

// =============================================================================
// PERIOD
// =============================================================================

func TestPeriod_Overlaps(t *testing.T) {
	existing := generic.Period{Start: day(2025, time.August, 11), End: day(2025, time.August, 15)}

	tests := []struct {
		name string
		next generic.Period
		want bool
	}{
		{"inside", generic.Period{Start: day(2025, time.August, 12), End: day(2025, time.August, 13)}, true},
		{"straddles start", generic.Period{Start: day(2025, time.August, 8), End: day(2025, time.August, 12)}, true},
		{"after", generic.Period{Start: day(2025, time.August, 18), End: day(2025, time.August, 19)}, false},
		{"touches end", generic.Period{Start: day(2025, time.August, 15), End: day(2025, time.August, 19)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, existing.Overlaps(tt.next))
		})
	}
}

func TestParseDate(t *testing.T) {
	tp, err := generic.ParseDate("2025-08-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-15", tp.String())

	tp, err = generic.ParseDate("2025-08-15T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-15", tp.String())

	_, err = generic.ParseDate("15/08/2025")
	assert.Error(t, err)
}
