package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"repeater-directory/internal/auth"
	"repeater-directory/internal/models"
	"repeater-directory/internal/repository/scylla"
	"repeater-directory/internal/search"
)

// RepeaterHandler serves the public directory. Reads are open; writes
// go through the session middleware.
type RepeaterHandler struct {
	repeaters scylla.RepeaterRepository
	index     *search.RepeaterIndex
	logger    *zap.Logger
}

func NewRepeaterHandler(repeaters scylla.RepeaterRepository, index *search.RepeaterIndex, logger *zap.Logger) *RepeaterHandler {
	return &RepeaterHandler{repeaters: repeaters, index: index, logger: logger}
}

func (h *RepeaterHandler) RegisterRoutes(r chi.Router) {
	r.Route("/repeaters", func(r chi.Router) {
		r.Get("/", h.ListRepeaters)
		r.Get("/search", h.SearchRepeaters)
		r.Get("/{id}", h.GetRepeater)
		r.Post("/", h.CreateRepeater)
		r.Put("/{id}", h.UpdateRepeater)
		r.Delete("/{id}", h.DeleteRepeater)
	})
}

func (h *RepeaterHandler) ListRepeaters(w http.ResponseWriter, r *http.Request) {
	repeaters, err := h.repeaters.ListRepeaters(r.Context())
	if err != nil {
		h.logger.Error("Failed to list repeaters", zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not list repeaters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repeaters": repeaters})
}

func (h *RepeaterHandler) GetRepeater(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid repeater id")
		return
	}

	rep, err := h.repeaters.GetRepeater(r.Context(), id)
	if err != nil {
		if errors.Is(err, scylla.ErrRepeaterNotFound) {
			writeFailure(w, http.StatusNotFound, KindNotFound, "Repeater not found")
			return
		}
		h.logger.Error("Failed to load repeater", zap.String("repeater_id", id.String()), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not load repeater")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *RepeaterHandler) SearchRepeaters(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Query parameter q is required")
		return
	}
	if !h.index.Available() {
		writeFailure(w, http.StatusServiceUnavailable, KindSQL, "Search is not available")
		return
	}

	hits, err := h.index.Search(r.Context(), query, 25)
	if err != nil {
		h.logger.Error("Repeater search failed", zap.String("query", query), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repeaters": hits})
}

func (h *RepeaterHandler) CreateRepeater(w http.ResponseWriter, r *http.Request) {
	rep := &models.Repeater{}
	if err := json.NewDecoder(r.Body).Decode(rep); err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid request body")
		return
	}
	rep.ID = uuid.New()
	h.storeRepeater(w, r, rep, http.StatusCreated)
}

func (h *RepeaterHandler) UpdateRepeater(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid repeater id")
		return
	}

	existing, err := h.repeaters.GetRepeater(r.Context(), id)
	if err != nil {
		if errors.Is(err, scylla.ErrRepeaterNotFound) {
			writeFailure(w, http.StatusNotFound, KindNotFound, "Repeater not found")
			return
		}
		h.logger.Error("Failed to load repeater", zap.String("repeater_id", id.String()), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not load repeater")
		return
	}

	rep := &models.Repeater{}
	if err := json.NewDecoder(r.Body).Decode(rep); err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid request body")
		return
	}
	rep.ID = id
	rep.CreatedAt = existing.CreatedAt
	h.storeRepeater(w, r, rep, http.StatusOK)
}

func (h *RepeaterHandler) DeleteRepeater(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid repeater id")
		return
	}

	if err := h.repeaters.DeleteRepeater(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete repeater", zap.String("repeater_id", id.String()), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not delete repeater")
		return
	}
	if err := h.index.RemoveRepeater(r.Context(), id.String()); err != nil {
		// The row is gone; a stale search hit will 404 on fetch.
		h.logger.Warn("Failed to remove repeater from search index",
			zap.String("repeater_id", id.String()), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id.String(),
		"deleted": true,
	})
}

func (h *RepeaterHandler) storeRepeater(w http.ResponseWriter, r *http.Request, rep *models.Repeater, status int) {
	if err := rep.Validate(); err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, err.Error())
		return
	}
	rep.UpdatedBy = auth.UsernameFrom(r.Context())

	if err := h.repeaters.UpsertRepeater(r.Context(), rep); err != nil {
		h.logger.Error("Failed to store repeater", zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not store repeater")
		return
	}
	if err := h.index.IndexRepeater(r.Context(), rep); err != nil {
		h.logger.Warn("Failed to index repeater for search",
			zap.String("repeater_id", rep.ID.String()), zap.Error(err))
	}
	writeJSON(w, status, rep)
}
