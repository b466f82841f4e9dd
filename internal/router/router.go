// internal/router/router.go
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors" // Import CORS middleware if needed

	"github.com/FACorreiaa/go-trip-planner/internal/api/planner"
)

// Config contains dependencies needed for the router setup
type Config struct {
	PlannerHandler *planner.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	// Optional: Add CORS middleware if your frontend is on a different origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"}, // Adjust origins
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Heartbeat/Health check endpoint (public)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Group API routes, potentially versioning them
	r.Route("/api/v1", func(r chi.Router) {
		// Conversation entry points
		r.Post("/turn", cfg.PlannerHandler.Turn)
		r.Post("/edit", cfg.PlannerHandler.Edit)
		r.Post("/explain", cfg.PlannerHandler.Explain)

		// Session inspection
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", cfg.PlannerHandler.GetSession)
			r.Delete("/", cfg.PlannerHandler.DeleteSession)
		})
	})

	return r
}
