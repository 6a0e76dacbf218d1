package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/report"
)

// =============================================================================
// ATTENDANCE
//
// Every endpoint acts on the caller's own sessions.
// =============================================================================

// ClockIn opens a session. Longitude and latitude are both required.
// POST /api/v1/attendance/clock-in
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockInRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	in := attendance.ClockInInput{UserID: identity(r).UserID, Notes: req.Notes}
	if req.Longitude != nil && req.Latitude != nil {
		in.Location = &attendance.Location{Longitude: *req.Longitude, Latitude: *req.Latitude}
	}

	s, err := tenantHandle(r).Attendance.ClockIn(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(*s))
}

// ClockOut closes today's open session.
// POST /api/v1/attendance/clock-out
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	s, total, err := tenantHandle(r).Attendance.ClockOut(r.Context(), identity(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClockOutResponse{Session: toSessionDTO(*s), TotalHours: total})
}

// AttendanceStatus reports whether the caller is clocked in today.
// GET /api/v1/attendance/status
func (h *Handler) AttendanceStatus(w http.ResponseWriter, r *http.Request) {
	st, err := tenantHandle(r).Attendance.Status(r.Context(), identity(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	dto := DayStatusDTO{State: st.State, TotalHours: st.TotalHours}
	if st.ClockIn != nil {
		dto.ClockIn = formatTimestamp(*st.ClockIn)
	}
	writeJSON(w, http.StatusOK, dto)
}

// AttendanceSummary returns the last ?days= days (default 30).
// GET /api/v1/attendance/summary
func (h *Handler) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summary(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(*sum))
}

// AttendanceSummaryPDF renders the same summary as a PDF download.
// GET /api/v1/attendance/summary.pdf
func (h *Handler) AttendanceSummaryPDF(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summary(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	handle := tenantHandle(r)
	u, err := handle.Users.Get(r.Context(), identity(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	org, err := h.onboarder.Get(r.Context(), handle.Slug)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	// Render into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	who := report.Subject{
		Name:         strings.TrimSpace(u.FirstName + " " + u.LastName),
		Email:        u.Email,
		Organization: org.Name,
	}
	if err := report.AttendancePDF(&buf, who, sum, h.now()); err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="attendance-%s.pdf"`, sum.To.String()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) summary(r *http.Request) (*attendance.Summary, error) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, generic.Invalid("days", "must be a number")
		}
		days = n
	}
	return tenantHandle(r).Attendance.Summary(r.Context(), identity(r).UserID, days)
}
