package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SpecialtyHandler struct {
	registry *service.SynonymRegistry
}

func NewSpecialtyHandler(registry *service.SynonymRegistry) *SpecialtyHandler {
	return &SpecialtyHandler{registry: registry}
}

type createSpecialtyRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
}

func (h *SpecialtyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSpecialtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sp := &domain.Specialty{
		Name:       req.Name,
		Category:   req.Category,
		Predefined: req.Synonyms,
		Source:     domain.SpecialtySourceCustom,
	}

	if err := h.registry.CreateSpecialty(r.Context(), sp); err != nil {
		var dup *service.DuplicateSynonymError
		switch {
		case errors.Is(err, service.ErrSpecialtyNameEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &dup):
			writeError(w, http.StatusConflict, dup.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create specialty")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sp)
}

func (h *SpecialtyHandler) List(w http.ResponseWriter, r *http.Request) {
	specialties, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list specialties")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"specialties": specialties})
}

func (h *SpecialtyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid specialty id")
		return
	}

	if err := h.registry.DeleteSpecialty(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrSpecialtyNotFound) {
			writeError(w, http.StatusNotFound, "specialty not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete specialty")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type synonymRequest struct {
	Text string `json:"text"`
}

func (h *SpecialtyHandler) AddSynonym(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid specialty id")
		return
	}

	var req synonymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.AddSynonym(r.Context(), id, req.Text); err != nil {
		var dup *service.DuplicateSynonymError
		switch {
		case errors.Is(err, service.ErrSynonymEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSpecialtyNotFound):
			writeError(w, http.StatusNotFound, "specialty not found")
		case errors.As(err, &dup):
			writeError(w, http.StatusConflict, dup.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to add synonym")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SpecialtyHandler) RemoveSynonym(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid specialty id")
		return
	}

	var req synonymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.RemoveSynonym(r.Context(), id, req.Text); err != nil {
		switch {
		case errors.Is(err, service.ErrSpecialtyNotFound):
			writeError(w, http.StatusNotFound, "specialty not found")
		case errors.Is(err, service.ErrSynonymNotFound):
			writeError(w, http.StatusNotFound, "synonym not found")
		case errors.Is(err, service.ErrSynonymPredefined):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to remove synonym")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SpecialtyHandler) Synonyms(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid specialty id")
		return
	}

	names, err := h.registry.AllSynonyms(id)
	if err != nil {
		if errors.Is(err, service.ErrSpecialtyNotFound) {
			writeError(w, http.StatusNotFound, "specialty not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list synonyms")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"synonyms": names})
}
