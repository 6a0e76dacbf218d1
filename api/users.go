package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/user"
)

// =============================================================================
// ORGANIZATION + USERS
// =============================================================================

// GetOrganization returns the caller's organization.
// GET /api/v1/organization
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.onboarder.Get(r.Context(), tenantHandle(r).Slug)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationDTO(*org))
}

// CreateUser adds an account to the caller's organization.
// POST /api/v1/users (admin)
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	in := user.CreateInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Role:        auth.Role(req.Role),
		Department:  req.Department,
		Designation: req.Designation,
	}
	if req.StartDate != "" {
		d, err := generic.ParseDate(req.StartDate)
		if err != nil {
			h.respondError(w, r, generic.Invalid("start_date", "use YYYY-MM-DD"))
			return
		}
		in.StartDate = &d
	}

	handle := tenantHandle(r)
	u, err := handle.Users.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*u, handle.Slug))
}

// ListUsers returns every account of the organization.
// GET /api/v1/users (admin)
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	handle := tenantHandle(r)
	users, err := handle.Users.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users, handle.Slug))
}

// GetUser returns one account. Non-admins may only read their own.
// GET /api/v1/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := identity(r)
	if caller.UserID != id && !caller.HasRole(auth.RoleAdmin) {
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	handle := tenantHandle(r)
	u, err := handle.Users.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u, handle.Slug))
}

// UpdateUser edits an account's profile, role and employment details.
// Email and password are not editable here.
// PUT /api/v1/users/{id} (admin)
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	in := user.UpdateInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Department:       req.Department,
		Designation:      req.Designation,
		EmploymentStatus: req.EmploymentStatus,
	}
	if req.Role != nil {
		if id == identity(r).UserID && auth.Role(*req.Role) != auth.RoleAdmin {
			h.respondError(w, r, generic.Invalid("role", "you cannot change your own role"))
			return
		}
		role := auth.Role(*req.Role)
		in.Role = &role
	}
	if req.StartDate != nil {
		d, err := generic.ParseDate(*req.StartDate)
		if err != nil {
			h.respondError(w, r, generic.Invalid("start_date", "use YYYY-MM-DD"))
			return
		}
		in.StartDate = &d
	}

	handle := tenantHandle(r)
	u, err := handle.Users.Update(r.Context(), id, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.Info("user updated", "tenant", handle.Slug, "user", u.ID, "role", u.Role, "by", identity(r).UserID)
	writeJSON(w, http.StatusOK, toUserDTO(*u, handle.Slug))
}

// ToggleUserActive flips an account's active flag.
// POST /api/v1/users/{id}/toggle-active (admin)
func (h *Handler) ToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == identity(r).UserID {
		h.respondError(w, r, generic.Invalid("id", "you cannot deactivate your own account"))
		return
	}

	handle := tenantHandle(r)
	u, err := handle.Users.ToggleActive(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u, handle.Slug))
}

// SearchUsers finds colleagues to notify about a leave request.
// GET /api/v1/users/search?q=
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	handle := tenantHandle(r)
	users, err := handle.Users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users, handle.Slug))
}
