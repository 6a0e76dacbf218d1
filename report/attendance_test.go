package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/report"
)

func TestAttendancePDF(t *testing.T) {
	in := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(8*time.Hour + 30*time.Minute)
	day := generic.NewTimePoint(2025, time.March, 10)

	sum := &attendance.Summary{
		UserID: "u1",
		From:   day.AddDays(-1),
		To:     day,
		Days: []attendance.DaySummary{
			{Date: day, Status: attendance.DayPresent, TotalHours: 8.5, IsToday: true, Sessions: []attendance.Session{
				{ClockIn: in, ClockOut: &out, WorkingHours: 8.5},
				{ClockIn: out.Add(time.Hour)},
			}},
			{Date: day.AddDays(-1), Status: attendance.DayAbsent},
		},
		Present:    1,
		Absent:     1,
		TotalHours: 8.5,
	}

	var buf bytes.Buffer
	err := report.AttendancePDF(&buf, report.Subject{Name: "Alice Smith", Email: "alice@acme.com", Organization: "Acme"}, sum, in)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
