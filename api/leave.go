package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/leave"
)

// =============================================================================
// LEAVE REQUESTS
//
//   POST   /leaves                     apply (any user)
//   GET    /leaves/my                  own requests
//   GET    /leaves                     all requests (approvers)
//   GET    /leaves/{id}                owner or approver
//   PUT    /leaves/{id}/status         approve / reject / cancel (approvers)
// =============================================================================

// ApplyLeave records a Pending request for the caller.
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req ApplyLeaveRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	// Unparseable dates are left zero so the engine reports them together
	// with any other missing field.
	start, _ := generic.ParseDate(req.StartDate)
	end, _ := generic.ParseDate(req.EndDate)

	handle := tenantHandle(r)
	created, err := handle.Leave.Apply(r.Context(), leave.ApplyInput{
		UserID:    identity(r).UserID,
		OrgID:     handle.OrgID,
		StartDate: start,
		EndDate:   end,
		Type:      req.LeaveType,
		Reason:    req.Reason,
		NotifyTo:  req.NotifyTo,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*created))
}

// MyLeaves lists the caller's requests, newest first.
func (h *Handler) MyLeaves(w http.ResponseWriter, r *http.Request) {
	reqs, err := tenantHandle(r).Leave.ListForUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(reqs))
}

// ListLeaves lists requests, optionally filtered by ?status= and ?user_id=.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reqs, err := tenantHandle(r).Leave.List(r.Context(), leave.RequestFilter{
		UserID: q.Get("user_id"),
		Status: leave.Status(q.Get("status")),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(reqs))
}

// GetLeave returns one request to its owner or an approver.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	req, err := tenantHandle(r).Leave.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	caller := identity(r)
	if req.UserID != caller.UserID && !caller.Role.CanApproveLeave() {
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// SetLeaveStatus moves a request to Approved, Rejected or Cancelled.
func (h *Handler) SetLeaveStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	updated, err := tenantHandle(r).Leave.SetStatus(r.Context(), leave.SetStatusInput{
		RequestID:       chi.URLParam(r, "id"),
		Status:          req.Status,
		ApproverID:      identity(r).UserID,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*updated))
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalance returns the caller's balance for ?year= (current year by
// default). Admins may pass ?user_id=.
// GET /api/v1/leaves/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	caller := identity(r)
	userID := caller.UserID
	if other := r.URL.Query().Get("user_id"); other != "" && other != userID {
		if !caller.HasRole(auth.RoleAdmin) {
			writeError(w, http.StatusForbidden, "insufficient permissions", nil)
			return
		}
		userID = other
	}

	handle := tenantHandle(r)
	if _, err := handle.Users.Get(r.Context(), userID); err != nil {
		h.respondError(w, r, err)
		return
	}
	b, err := handle.Ledger.GetOrCreate(r.Context(), userID, year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*b))
}

// OverrideBalance sets one category of a user's balance.
// PUT /api/v1/leaves/balance/{userID} (admin)
func (h *Handler) OverrideBalance(w http.ResponseWriter, r *http.Request) {
	var req OverrideBalanceRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	t, ok := leave.ParseType(req.LeaveType)
	if !ok {
		h.respondError(w, r, generic.Invalid("leave_type", "unknown leave type %q", req.LeaveType))
		return
	}
	if req.Year == 0 {
		req.Year = h.now().Year()
	}

	handle := tenantHandle(r)
	userID := chi.URLParam(r, "userID")
	if _, err := handle.Users.Get(r.Context(), userID); err != nil {
		h.respondError(w, r, err)
		return
	}
	b, err := handle.Ledger.Override(r.Context(), userID, req.Year, t, req.Value)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.Info("balance overridden", "tenant", handle.Slug, "user", userID, "year", req.Year,
		"type", t, "value", req.Value.String(), "by", identity(r).UserID)
	writeJSON(w, http.StatusOK, toBalanceDTO(*b))
}

// =============================================================================
// POLICIES
// =============================================================================

// SetPolicy creates or updates a year's policy.
// PUT /api/v1/leaves/policy (admin)
func (h *Handler) SetPolicy(w http.ResponseWriter, r *http.Request) {
	var req PolicyRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := tenantHandle(r).Policies.Set(r.Context(), leave.SetPolicyInput{
		Year:       req.Year,
		Allotments: req.allotments(),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*p))
}

// GetPolicy returns the policy for ?year=, or every policy (newest first)
// when no year is given.
// GET /api/v1/leaves/policy
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	handle := tenantHandle(r)
	if r.URL.Query().Get("year") == "" {
		policies, err := handle.Policies.List(r.Context())
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		dtos := make([]PolicyDTO, len(policies))
		for i, p := range policies {
			dtos[i] = toPolicyDTO(p)
		}
		writeJSON(w, http.StatusOK, dtos)
		return
	}

	year, err := h.yearParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := handle.Policies.Get(r.Context(), year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*p))
}

// ApplyPolicy pushes a policy onto every active user's balance.
// POST /api/v1/leaves/policy/apply (admin)
func (h *Handler) ApplyPolicy(w http.ResponseWriter, r *http.Request) {
	var req ApplyPolicyRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Year == 0 {
		req.Year = h.now().Year()
	}

	res, err := tenantHandle(r).Ledger.ApplyPolicyToAllEmployees(r.Context(), req.Year, req.Reset)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplyPolicyResponse{
		Year:    req.Year,
		Created: res.Created,
		Updated: res.Updated,
		Total:   res.Total,
	})
}

// yearParam reads ?year=, defaulting to the current year.
func (h *Handler) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return h.now().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, generic.Invalid("year", "must be a number")
	}
	return year, nil
}
