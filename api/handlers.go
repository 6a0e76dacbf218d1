/*
handlers.go - HTTP API handlers for the HR service

PURPOSE:
  Exposes onboarding, users, leave, holidays and attendance over REST.
  Handlers parse the request, call the tenant's services through the
  resolved tenant.Handle and serialize the result. Domain errors go through
  respondError.

ENDPOINTS (all under /api/v1):
  Auth:
    POST   /auth/login                   Email + password -> token
    GET    /auth/me                      Current account
    PUT    /auth/password                Change own password

  Platform (superadmin):
    POST   /platform/organizations       Onboard organization + admin
    GET    /platform/organizations       List organizations
    GET    /platform/organizations/{slug}
    PUT    /platform/organizations/{slug}
    POST   /platform/organizations/{slug}/deactivate
    POST   /platform/organizations/{slug}/activate
    GET    /platform/stats               Open tenant databases
    POST   /platform/rollover            Run the policy rollover now

  Tenant: see users.go, leave.go, holidays.go, attendance.go

ARCHITECTURE:
  Handler holds process-wide dependencies only. Per-tenant services come
  from the request context (middleware.go).

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/tenant"
	"github.com/warp/hrms/user"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	registry  *tenant.Registry
	onboarder *tenant.Onboarder
	admins    user.PlatformAdminStore
	tokens    *auth.Tokens
	rollover  *RolloverScheduler
	now       func() time.Time
	logger    *slog.Logger
}

// NewHandler creates a handler. rollover may be nil when the scheduler is
// disabled; POST /platform/rollover then runs a one-off scheduler.
func NewHandler(registry *tenant.Registry, onboarder *tenant.Onboarder, admins user.PlatformAdminStore,
	tokens *auth.Tokens, rollover *RolloverScheduler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if rollover == nil {
		rollover = NewRolloverScheduler(registry, logger)
	}
	return &Handler{
		registry:  registry,
		onboarder: onboarder,
		admins:    admins,
		tokens:    tokens,
		rollover:  rollover,
		now:       time.Now,
		logger:    logger.With("component", "api"),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"tenants": h.registry.Provisioned(),
	})
}

// =============================================================================
// AUTH
// =============================================================================

// Login authenticates a platform admin or a tenant user and issues a token.
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		h.respondError(w, r, generic.Invalid("", "email and password are required"))
		return
	}

	admin, err := h.admins.GetPlatformAdmin(r.Context(), email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if admin != nil && req.Tenant == "" {
		if !admin.Active || !auth.CheckPassword(admin.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		h.issue(w, r, *admin, auth.Identity{UserID: admin.ID, Email: admin.Email, Role: auth.RoleSuperAdmin}, "")
		return
	}

	key := strings.ToLower(strings.TrimSpace(req.Tenant))
	if key == "" {
		if key, err = auth.TenantKeyFromEmail(email); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
	}

	handle, err := h.registry.Resolve(r.Context(), key)
	switch {
	case errors.Is(err, generic.ErrTenantInactive):
		writeError(w, http.StatusUnauthorized, "organization is deactivated", nil)
		return
	case errors.Is(err, generic.ErrTenantNotFound):
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	case err != nil:
		h.respondError(w, r, err)
		return
	}

	u, err := handle.Users.Authenticate(r.Context(), email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.issue(w, r, *u, auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role, Tenant: handle.Slug, OrgID: handle.OrgID}, handle.Slug)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, u user.User, id auth.Identity, slug string) {
	token, err := h.tokens.Issue(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	expires := h.now().Add(h.tokens.TTL())
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login", "user", u.ID, "role", id.Role, "tenant", slug)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: formatTimestamp(expires),
		User:      toUserDTO(u, slug),
	})
}

// Logout expires the token cookie. Bearer tokens stay valid until they expire.
// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's account.
// GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.IsPlatformAdmin() {
		admin, err := h.admins.GetPlatformAdmin(r.Context(), id.Email)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if admin == nil {
			writeError(w, http.StatusUnauthorized, "account no longer exists", nil)
			return
		}
		writeJSON(w, http.StatusOK, toUserDTO(*admin, ""))
		return
	}

	handle := tenantHandle(r)
	u, err := handle.Users.Get(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u, handle.Slug))
}

// ChangePassword replaces the caller's password.
// PUT /api/v1/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	id := identity(r)
	if id.IsPlatformAdmin() {
		h.changePlatformPassword(w, r, id, req)
		return
	}

	err := tenantHandle(r).Users.ChangePassword(r.Context(), id.UserID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, generic.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, "current password is incorrect", nil)
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePlatformPassword(w http.ResponseWriter, r *http.Request, id auth.Identity, req ChangePasswordRequest) {
	admin, err := h.admins.GetPlatformAdmin(r.Context(), id.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if admin == nil || !auth.CheckPassword(admin.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusBadRequest, "current password is incorrect", nil)
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	admin.PasswordHash = hash
	admin.UpdatedAt = h.now().UTC()
	if err := h.admins.SavePlatformAdmin(r.Context(), *admin); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PLATFORM
// =============================================================================

// CreateOrganization onboards an organization and its first admin.
// POST /api/v1/platform/organizations
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.onboarder.Onboard(r.Context(), tenant.OnboardInput{
		Name:           req.Name,
		Slug:           req.Slug,
		ContactEmail:   req.ContactEmail,
		Phone:          req.Phone,
		Plan:           req.Plan,
		AdminFirstName: req.AdminFirstName,
		AdminLastName:  req.AdminLastName,
		AdminPassword:  req.AdminPassword,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, OnboardResponse{
		Organization:      toOrganizationDTO(res.Organization),
		Admin:             toUserDTO(res.Admin, res.Organization.Slug),
		GeneratedPassword: res.GeneratedPassword,
	})
}

// ListOrganizations returns every organization.
// GET /api/v1/platform/organizations
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.onboarder.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	dtos := make([]OrganizationDTO, len(orgs))
	for i, o := range orgs {
		dtos[i] = toOrganizationDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrganizationBySlug returns one organization.
// GET /api/v1/platform/organizations/{slug}
func (h *Handler) GetOrganizationBySlug(w http.ResponseWriter, r *http.Request) {
	org, err := h.onboarder.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationDTO(*org))
}

// UpdateOrganization changes name, contact, phone or plan.
// PUT /api/v1/platform/organizations/{slug}
func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrganizationRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	org, err := h.onboarder.UpdateDetails(r.Context(), chi.URLParam(r, "slug"), tenant.DetailsInput{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Plan:         req.Plan,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationDTO(*org))
}

// DeactivateOrganization blocks the tenant immediately.
// POST /api/v1/platform/organizations/{slug}/deactivate
func (h *Handler) DeactivateOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.onboarder.Deactivate(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationDTO(*org))
}

// POST /api/v1/platform/organizations/{slug}/activate
func (h *Handler) ActivateOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.onboarder.Activate(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationDTO(*org))
}

// PlatformStats lists the tenant databases this process has open.
// GET /api/v1/platform/stats
func (h *Handler) PlatformStats(w http.ResponseWriter, r *http.Request) {
	handles := h.registry.Handles()
	open := make([]string, len(handles))
	for i, th := range handles {
		open[i] = th.Slug
	}
	writeJSON(w, http.StatusOK, PlatformStatsDTO{Provisioned: h.registry.Provisioned(), Open: open})
}

// TriggerRollover applies the current year's policies to every open tenant.
// POST /api/v1/platform/rollover
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	results := h.rollover.RunNow(r.Context())
	writeJSON(w, http.StatusOK, results)
}
