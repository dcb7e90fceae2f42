package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/orgs", func(r chi.Router) {
			r.Get("/", s.handleListOrganizations)
			r.Post("/", s.handleCreateOrganization)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetOrgTree)
				r.Post("/trailers", s.handleCreateTrailer)
			})
		})

		r.Route("/trailers/{id}", func(r chi.Router) {
			r.Post("/bikes", s.handleCreateBike)
			r.Post("/ovens", s.handleCreateOven)
			r.Post("/microgrids", s.handleCreateMicrogrid)
		})

		r.Get("/bikes/{id}/org", s.handleGetBikeOrganization)

		r.Route("/telemetry/{kind}/{id}", func(r chi.Router) {
			r.Get("/", s.handleFetchTelemetry)
			r.Post("/", s.handleInsertTelemetry)
			r.Get("/latest", s.handleFetchLatest)
			r.Get("/stream", s.handleStream)
		})
	})

	return r
}

// handleHealth reports server status and each registered component.
// Any failing component turns the response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(s.health))

	for name, checker := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()

		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			components[name] = "error"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"ws_clients": s.hub.ClientCount(),
	})
}
