package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecowise/idftab/internal/artifact"
	"github.com/ecowise/idftab/internal/convert"
	"github.com/ecowise/idftab/internal/jobstore"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *convert.Service, jobs jobstore.Store, artifacts artifact.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, jobs, artifacts)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pipeline.
	r.Post("/convert", h.Convert)
	r.Post("/update", h.Update)
	r.Post("/detect", h.Detect)

	// Catalog.
	r.Get("/versions", h.Versions)

	// Jobs and artifacts.
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{id}", h.GetJob)
	r.Get("/artifacts/*", h.GetArtifact)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
