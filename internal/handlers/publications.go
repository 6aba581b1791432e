package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/models"
	"github.com/unipublish/backend/internal/repositories"
)

// PublicationHandler serves the publication history.
type PublicationHandler struct {
	Publications PublicationLister
}

type publicationsResponse struct {
	Publications []models.Publication `json:"publications"`
}

// List handles GET /api/v1/publications?limit=N.
func (h PublicationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Publications == nil {
		logger.Error("publication log unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "publication log unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	publications, err := h.Publications.ListRecent(ctx, limit)
	if err != nil {
		logger.Error("list publications", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "list_failed", "failed to list publications")
		return
	}
	if publications == nil {
		publications = []models.Publication{}
	}

	respondJSON(ctx, w, http.StatusOK, publicationsResponse{Publications: publications})
}

// Get handles GET /api/v1/publications/{id}.
func (h PublicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Publications == nil {
		logger.Error("publication log unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "publication log unavailable")
		return
	}

	publication, err := h.Publications.FindByID(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "publication_not_found", "publication not found")
			return
		}
		logger.Error("find publication", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "lookup_failed", "failed to load publication")
		return
	}

	respondJSON(ctx, w, http.StatusOK, publication)
}
