/*
middleware.go - Authentication, tenant resolution and guards

PURPOSE:
  Every tenant-scoped request passes three steps before its handler:

    authenticate   bearer header or "token" cookie -> auth.Identity
    resolveTenant  identity.Tenant -> registry.Resolve -> *tenant.Handle
    requireRole    identity role check (only on guarded routes)

  Platform routes use requirePlatformAdmin instead of resolveTenant.

STATUS CODES:
  missing/invalid token              401
  tenant unknown or user gone        401
  tenant deactivated                 403
  wrong role                         403

SEE ALSO:
  - server.go: Where each middleware is mounted
  - tenant/registry.go: Resolve
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/tenant"
)

const tokenCookie = "token"

type handleKey struct{}

// authenticate verifies the caller's token and stores the identity.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		id, err := h.tokens.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// resolveTenant binds the caller's tenant handle to the request. The user
// must still exist and be active in that tenant; its stored role replaces
// the one in the token.
func (h *Handler) resolveTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		if id.Tenant == "" {
			writeError(w, http.StatusForbidden, "this endpoint requires an organization account", nil)
			return
		}

		handle, err := h.registry.Resolve(r.Context(), id.Tenant)
		switch {
		case errors.Is(err, generic.ErrTenantInactive):
			writeError(w, http.StatusForbidden, "organization is deactivated", nil)
			return
		case errors.Is(err, generic.ErrTenantNotFound):
			writeError(w, http.StatusUnauthorized, "organization not found", nil)
			return
		case err != nil:
			h.respondError(w, r, err)
			return
		}

		u, err := handle.Users.Get(r.Context(), id.UserID)
		if errors.Is(err, generic.ErrNotFound) || (err == nil && !u.Active) {
			writeError(w, http.StatusUnauthorized, "account is not active", nil)
			return
		}
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		// Role changes apply without a new login.
		id.Role = u.Role
		ctx := auth.WithIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, handleKey{}, handle)))
	})
}

// resolveTenantUnlessPlatform lets platform admins through untouched and
// resolves the tenant for everyone else.
func (h *Handler) resolveTenantUnlessPlatform(next http.Handler) http.Handler {
	withTenant := h.resolveTenant(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity(r).IsPlatformAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		withTenant.ServeHTTP(w, r)
	})
}

// requireRole admits only callers holding one of roles.
func requireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !identity(r).HasRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requirePlatformAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identity(r).IsPlatformAdmin() {
			writeError(w, http.StatusForbidden, "platform administrator access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// approvers may list and transition other users' leave.
var approvers = []auth.Role{auth.RoleAdmin, auth.RoleManager, auth.RoleTeamLead}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func tenantHandle(r *http.Request) *tenant.Handle {
	h, _ := r.Context().Value(handleKey{}).(*tenant.Handle)
	return h
}

// =============================================================================
// LOGGING + RATE LIMITING
// =============================================================================

// requestLogger logs one line per request after it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// rateLimit limits requests per client IP per minute.
func rateLimit(requests int, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded", "ip", r.RemoteAddr, "path", r.URL.Path, "method", r.Method)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later", nil)
		}),
	)
}
