package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/holiday"
)

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the holidays of ?year= (current year by default), or
// of the inclusive ?from=&to= range when both are given.
// GET /api/v1/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	svc := tenantHandle(r).Holidays
	q := r.URL.Query()

	var (
		holidays []generic.Holiday
		err      error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		from, ferr := generic.ParseDate(q.Get("from"))
		to, terr := generic.ParseDate(q.Get("to"))
		if ferr != nil || terr != nil {
			h.respondError(w, r, generic.Invalid("from", "from and to must both be YYYY-MM-DD"))
			return
		}
		holidays, err = svc.HolidaysBetween(r.Context(), from, to)
	} else {
		year, yerr := h.yearParam(r)
		if yerr != nil {
			h.respondError(w, r, yerr)
			return
		}
		holidays, err = svc.ListYear(r.Context(), year)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHoliday returns one holiday.
func (h *Handler) GetHoliday(w http.ResponseWriter, r *http.Request) {
	hol, err := tenantHandle(r).Holidays.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTO(*hol))
}

// CreateHoliday adds a holiday (admin).
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	in, ok := h.holidayInput(w, r)
	if !ok {
		return
	}
	hol, err := tenantHandle(r).Holidays.Create(r.Context(), in, identity(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(*hol))
}

// UpdateHoliday replaces a holiday's title, date and description (admin).
func (h *Handler) UpdateHoliday(w http.ResponseWriter, r *http.Request) {
	in, ok := h.holidayInput(w, r)
	if !ok {
		return
	}
	hol, err := tenantHandle(r).Holidays.Update(r.Context(), chi.URLParam(r, "id"), in, identity(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTO(*hol))
}

// DeleteHoliday removes a holiday (admin).
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := tenantHandle(r).Holidays.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) holidayInput(w http.ResponseWriter, r *http.Request) (holiday.Input, bool) {
	var req HolidayRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return holiday.Input{}, false
	}
	in := holiday.Input{Title: req.Title, Description: req.Description}
	if req.Date != "" {
		d, err := generic.ParseDate(req.Date)
		if err != nil {
			h.respondError(w, r, generic.Invalid("date", "use YYYY-MM-DD"))
			return holiday.Input{}, false
		}
		in.Date = d
	}
	return in, true
}
