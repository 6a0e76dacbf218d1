/*
attendance.go - Attendance summary as PDF

PURPOSE:
  Renders an attendance.Summary into a one-user A4 report: header with the
  window and totals, then one row per day (newest first) and the sessions
  recorded that day.

SEE ALSO:
  - attendance/summary.go: Produces the Summary
  - api/attendance.go: GET /attendance/summary.pdf
*/
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/warp/hrms/attendance"
)

// Subject identifies whose attendance is printed.
type Subject struct {
	Name         string
	Email        string
	Organization string
}

const (
	colDate     = 32.0
	colStatus   = 28.0
	colHours    = 24.0
	colSessions = 106.0
	rowHeight   = 7.0
)

// AttendancePDF writes the summary to w.
func AttendancePDF(w io.Writer, who Subject, sum *attendance.Summary, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Attendance report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Attendance report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Employee: %s <%s>", who.Name, who.Email))
	pdf.Ln(6)
	if who.Organization != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Organization: %s", who.Organization))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", sum.From, sum.To))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Present: %d   Half days: %d   Absent: %d   Total hours: %.2f",
		sum.Present, sum.HalfDays, sum.Absent, sum.TotalHours))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colDate, rowHeight, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colStatus, rowHeight, "Status", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colHours, rowHeight, "Hours", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colSessions, rowHeight, "Sessions", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, day := range sum.Days {
		pdf.CellFormat(colDate, rowHeight, day.Date.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colStatus, rowHeight, day.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colHours, rowHeight, fmt.Sprintf("%.2f", day.TotalHours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colSessions, rowHeight, sessionsLine(day.Sessions), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 5, "Generated "+generatedAt.UTC().Format(time.RFC1123))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render attendance pdf: %w", err)
	}
	return nil
}

// sessionsLine prints "09:00-12:30 (3h30m), 13:00-open".
func sessionsLine(sessions []attendance.Session) string {
	parts := make([]string, 0, len(sessions))
	for _, s := range sessions {
		in := s.ClockIn.UTC().Format("15:04")
		if s.Open() {
			parts = append(parts, in+"-open")
			continue
		}
		d := attendance.SessionDuration(s).Round(time.Minute)
		parts = append(parts, fmt.Sprintf("%s-%s (%s)", in, s.ClockOut.UTC().Format("15:04"), shortDuration(d)))
	}
	return strings.Join(parts, ", ")
}

func shortDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
