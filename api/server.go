/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. RealIP:     Client address for rate limiting
  3. Logger:     One slog line per request
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend
  6. Rate limit: Per-IP, tighter on /auth/login

ROUTE GROUPS:
  /healthz                   Liveness
  /api/v1/auth/*             Login + logout (public), me + password (authenticated)
  /api/v1/platform/*         Superadmin only
  /api/v1/*                  Tenant routes: authenticate -> resolveTenant

  The whole router is wrapped in otelhttp so every request gets a span.

SEE ALSO:
  - handlers.go, users.go, leave.go, holidays.go, attendance.go
  - middleware.go: authenticate, resolveTenant, requireRole
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/hrms/auth"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options tunes the router. Zero rate limits disable limiting.
type Options struct {
	CORSOrigins             []string
	RateLimitPerMinute      int
	LoginRateLimitPerMinute int
	Logger                  *slog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = h.logger
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(rateLimit(opts.RateLimitPerMinute, logger))
	}

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			if opts.LoginRateLimitPerMinute > 0 {
				r.Use(rateLimit(opts.LoginRateLimitPerMinute, logger))
			}
			r.Post("/auth/login", h.Login)
		})
		r.Post("/auth/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			// Auth routes shared by platform admins and tenant users
			r.Group(func(r chi.Router) {
				r.Use(h.resolveTenantUnlessPlatform)
				r.Get("/auth/me", h.Me)
				r.Put("/auth/password", h.ChangePassword)
			})

			// Platform routes
			r.Route("/platform", func(r chi.Router) {
				r.Use(requirePlatformAdmin)
				r.Get("/stats", h.PlatformStats)
				r.Post("/rollover", h.TriggerRollover)
				r.Route("/organizations", func(r chi.Router) {
					r.Post("/", h.CreateOrganization)
					r.Get("/", h.ListOrganizations)
					r.Get("/{slug}", h.GetOrganizationBySlug)
					r.Put("/{slug}", h.UpdateOrganization)
					r.Post("/{slug}/deactivate", h.DeactivateOrganization)
					r.Post("/{slug}/activate", h.ActivateOrganization)
				})
			})

			// Tenant routes
			r.Group(func(r chi.Router) {
				r.Use(h.resolveTenant)
				mountTenantRoutes(r, h)
			})
		})
	})

	return otelhttp.NewHandler(r, "hrms")
}

func mountTenantRoutes(r chi.Router, h *Handler) {
	admin := requireRole(auth.RoleAdmin)

	r.Get("/organization", h.GetOrganization)

	// User routes
	r.Route("/users", func(r chi.Router) {
		r.Get("/search", h.SearchUsers)
		r.Get("/{id}", h.GetUser)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.CreateUser)
			r.Get("/", h.ListUsers)
			r.Put("/{id}", h.UpdateUser)
			r.Post("/{id}/toggle-active", h.ToggleUserActive)
		})
	})

	// Leave routes
	r.Route("/leaves", func(r chi.Router) {
		r.Post("/", h.ApplyLeave)
		r.Get("/my", h.MyLeaves)
		r.Get("/balance", h.GetBalance)
		r.With(admin).Put("/balance/{userID}", h.OverrideBalance)

		r.Route("/policy", func(r chi.Router) {
			r.Use(admin)
			r.Put("/", h.SetPolicy)
			r.Get("/", h.GetPolicy)
			r.Post("/apply", h.ApplyPolicy)
		})

		r.With(requireRole(approvers...)).Get("/", h.ListLeaves)
		r.Get("/{id}", h.GetLeave)
		r.With(requireRole(approvers...)).Put("/{id}/status", h.SetLeaveStatus)
	})

	// Holiday routes
	r.Route("/holidays", func(r chi.Router) {
		r.Get("/", h.ListHolidays)
		r.Get("/{id}", h.GetHoliday)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.CreateHoliday)
			r.Put("/{id}", h.UpdateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	// Attendance routes
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/clock-in", h.ClockIn)
		r.Post("/clock-out", h.ClockOut)
		r.Get("/status", h.AttendanceStatus)
		r.Get("/summary", h.AttendanceSummary)
		r.Get("/summary.pdf", h.AttendanceSummaryPDF)
	})
}
