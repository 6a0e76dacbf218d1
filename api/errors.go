/*
errors.go - Domain error to HTTP status mapping

PURPOSE:
  Single place where generic.Err* values turn into status codes and JSON
  error bodies. Handlers call respondError and never pick codes for domain
  failures themselves.

MAPPING:
  ErrValidation, ErrInvalidRange       400
  ErrInvalidCredentials                401
  ErrTenantInactive                    403
  ErrNotFound, ErrTenantNotFound       404
  ErrConflict, ErrAlreadyClockedIn,
  ErrNoOpenSession,
  ErrConcurrentModification            409
  ErrInsufficientBalance               422 (body carries the figures)
  anything else                        500 (details logged, not returned)

SEE ALSO:
  - generic/errors.go: Error taxonomy
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/hrms/generic"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Field   string            `json:"field,omitempty"`
	Balance *BalanceShortfall `json:"balance,omitempty"`
}

// BalanceShortfall accompanies 422 responses.
type BalanceShortfall struct {
	Category  string `json:"category"`
	Year      int    `json:"year"`
	Available string `json:"available"`
	Requested string `json:"requested"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor returns the HTTP status for a domain error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrValidation), errors.Is(err, generic.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, generic.ErrTenantInactive):
		return http.StatusForbidden
	case errors.Is(err, generic.ErrNotFound), errors.Is(err, generic.ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrConflict),
		errors.Is(err, generic.ErrAlreadyClockedIn),
		errors.Is(err, generic.ErrNoOpenSession),
		errors.Is(err, generic.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, generic.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, status, "internal server error", nil)
		return
	}

	resp := ErrorResponse{Error: err.Error()}

	var verr *generic.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Message
		resp.Field = verr.Field
	}
	var insufficient *generic.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		resp.Balance = &BalanceShortfall{
			Category:  insufficient.Category,
			Year:      insufficient.Year,
			Available: insufficient.Available.String(),
			Requested: insufficient.Requested.String(),
		}
	}

	h.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, resp)
}

// decode reads a JSON body into dst. Unknown fields are rejected.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return generic.Invalid("", "invalid request body: %v", err)
	}
	return nil
}
