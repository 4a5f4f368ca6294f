/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through the handler's logrus logger
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/sessions/*       Sessions, catalog import, allocation, export
  /                     Plain index of the API

SEE ALSO:
  - handlers.go: Handler implementations
  - logging.go: logrus request log formatter
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(requestLogger{log: h.Log}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Put("/budget", h.UpdateBudget)

				// Catalog
				r.Post("/import", h.ImportCatalog)

				// Allocation
				r.Get("/periods", h.ListPeriods)
				r.Get("/tree", h.GetTree)
				r.Put("/allocations", h.SetAllocation)
				r.Post("/distribute", h.Distribute)
				r.Get("/export", h.Export)
			})
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>SKU Budget Allocator</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>SKU Budget Allocator API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/sessions">/api/sessions</a> - List sessions</li>
<li>/api/sessions/{id}/import - Import a catalog (JSON, CSV or XLSX)</li>
<li>/api/sessions/{id}/tree?period= - Allocation tree</li>
<li>/api/sessions/{id}/export?period=&amp;format=csv|xlsx - Per-SKU export</li>
</ul>
</body>
</html>`))
	})

	return r
}
