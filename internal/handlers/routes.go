package handlers

import (
	"context"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions       SessionRegistry
	Runner         JobRunner
	Archive        VideoArchive
	Publications   PublicationLister
	GenerateLimit  RateLimiter
	MaxUploadBytes int64
	Metrics        http.Handler
	HealthCheck    func(ctx context.Context) error
}

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(router *mux.Router, deps Dependencies) {
	health := HealthHandler{Check: deps.HealthCheck}
	sessions := SessionHandler{
		Sessions:       deps.Sessions,
		Runner:         deps.Runner,
		Archive:        deps.Archive,
		Limiter:        deps.GenerateLimit,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	publications := PublicationHandler{Publications: deps.Publications}

	router.HandleFunc("/healthz", health.Handle)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", sessions.Create).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", sessions.Get).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", sessions.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/text", sessions.SetText).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/video", sessions.SetVideo).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/video", sessions.ClearVideo).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/generate", sessions.Generate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/platforms/{platform}", sessions.UpdatePlatform).Methods(http.MethodPatch)
	api.HandleFunc("/sessions/{id}/publish", sessions.Publish).Methods(http.MethodPost)
	api.HandleFunc("/publications", publications.List).Methods(http.MethodGet)
	api.HandleFunc("/publications/{id}", publications.Get).Methods(http.MethodGet)
}

// CORS allows the dashboard origins to call the API from a browser.
func CORS(origins []string) func(http.Handler) http.Handler {
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		gorillahandlers.ExposedHeaders([]string{"X-Request-ID", "Retry-After"}),
	)
}
