/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. requestLog: Request-scoped slog logger carrying the request ID
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/waterfall/*      Ad-hoc runs and validation
  /api/presets/*        Built-in structures
  /api/deals/*          Stored deals, runs and sweeps
  /api/runs/*           Stored runs
  /api/scenarios/*      Demo scenarios
  /api/health           Liveness and database check

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/distribution-engine/logger"
)

// NewRouter creates a new router with all routes configured.
// allowedOrigins configures CORS; nil allows no cross-origin requests.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Ad-hoc runs
		r.Route("/waterfall", func(r chi.Router) {
			r.Post("/run", h.RunWaterfall)
			r.Post("/validate", h.ValidateWaterfall)
		})

		// Preset routes
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", h.ListPresets)
			r.Get("/{id}", h.GetPreset)
		})

		// Deal routes
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", h.ListDeals)
			r.Post("/", h.CreateDeal)
			r.Get("/{id}", h.GetDeal)
			r.Get("/{id}/runs", h.ListRuns)
			r.Post("/{id}/runs", h.RunDeal)
			r.Post("/{id}/sweep", h.SweepDeal)
		})

		// Run routes
		r.Route("/runs", func(r chi.Router) {
			r.Get("/{id}", h.GetRun)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Distribution Waterfall Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Distribution Waterfall Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/presets">/api/presets</a> - Built-in waterfall structures</li>
<li><a href="/api/deals">/api/deals</a> - List deals</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
<li><a href="/api/health">/api/health</a> - Health check</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLog attaches a logger tagged with the request ID to the context.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.L.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logger.ToContext(r.Context(), l)))
	})
}
