package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maltedev/sis-schedule-scraper/internal/database"
)

// HealthChecker reports outbox backlog. database.Relay implements it.
type HealthChecker interface {
	Health(ctx context.Context) (database.RelayHealth, error)
}

var defaultOrigins = []string{"http://localhost:*", "https://localhost:*"}

// NewRouter mounts the job API and /health. A nil health checker always
// reports ok.
func NewRouter(h *Handlers, health HealthChecker, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.healthHandler(health))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.CreateJob)
			r.Get("/", h.ListJobs)
			r.Get("/{jobID}", h.GetJob)
			r.Get("/{jobID}/classes.{format}", h.GetJobClasses)
		})
	})

	return r
}

func (h *Handlers) healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		health, err := checker.Health(r.Context())
		if err != nil {
			h.logger.Error("health check failed", "error", err)
			h.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "error",
				"message": "outbox unavailable",
			})
			return
		}

		status := http.StatusOK
		if !health.Healthy() {
			status = http.StatusServiceUnavailable
		}
		h.respondJSON(w, status, map[string]interface{}{
			"status":  health.Status,
			"message": health.Message,
			"outbox":  health,
		})
	}
}
