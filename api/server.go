/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request for tracing
  2. RequestLogger:  One zap line per request
  3. RequestMetrics: Prometheus duration/count per route pattern
  4. Recoverer:      Panic recovery (500 instead of crash)
  5. Heartbeat:      GET /health liveness probe
  6. CORS:           Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*   Employees, balances, history, leave entries
  /api/leaves/*      Cross-employee leave views
  /api/reports/*     Usage report
  /api/audit         Audit trail
  /api/tools/*       Field-keyed tool envelope
  /metrics           Prometheus scrape (when enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	Logger         *zap.Logger
	Metrics        *Metrics // nil disables /metrics
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Credentials are only allowed for an explicit origin list.
	origins := opts.AllowedOrigins
	credentials := true
	if len(origins) == 0 || slices.Contains(origins, "*") {
		origins = []string{"*"}
		credentials = false
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RequestMetrics(opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.RegisterEmployee)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Get("/balance", h.GetBalance)
				r.Post("/balance/adjustments", h.AdjustBalance)
				r.Get("/history", h.GetHistory)
				r.Post("/leaves", h.ApplyLeave)
				r.Post("/leaves/{date}/approve", h.ApproveLeave)
				r.Post("/leaves/{date}/reject", h.RejectLeave)
				r.Post("/leaves/{date}/cancel", h.CancelLeave)
			})
		})

		r.Get("/leaves/upcoming", h.ListUpcoming)
		r.Get("/reports/usage", h.UsageReport)
		r.Get("/audit", h.AuditTrail)

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", h.ListTools)
			r.Post("/{tool}", h.CallTool)
		})
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "Route not found", nil)
	})

	return r
}
