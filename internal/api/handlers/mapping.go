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

type MappingHandler struct {
	svc *service.MappingService
}

func NewMappingHandler(svc *service.MappingService) *MappingHandler {
	return &MappingHandler{svc: svc}
}

type manualMapRequest struct {
	SurveyID string   `json:"survey_id"`
	Source   string   `json:"source_specialty"`
	Targets  []string `json:"mapped_specialties"`
	Notes    string   `json:"notes,omitempty"`
	Vendor   string   `json:"vendor,omitempty"`
}

func (h *MappingHandler) ManualMap(w http.ResponseWriter, r *http.Request) {
	var req manualMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	surveyID, err := uuid.Parse(req.SurveyID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid survey_id")
		return
	}

	m, err := h.svc.ManualMap(r.Context(), surveyID, req.Source, req.Targets, req.Notes, req.Vendor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceSpecialtyEmpty),
			errors.Is(err, service.ErrTargetSpecialtyEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case m != nil:
			// Mapping saved but the learning event did not persist;
			// the caller must know the decision may not train rules.
			writeError(w, http.StatusInternalServerError, "mapping saved but decision log write failed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to save mapping")
		}
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

type approveRequest struct {
	SurveyID   string  `json:"survey_id"`
	Source     string  `json:"source_specialty"`
	Target     string  `json:"target_specialty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Vendor     string  `json:"vendor,omitempty"`
}

func (h *MappingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	surveyID, err := uuid.Parse(req.SurveyID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid survey_id")
		return
	}

	m, err := h.svc.Approve(r.Context(), surveyID, req.Source, req.Target, req.Confidence, req.Reason, req.Vendor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceSpecialtyEmpty),
			errors.Is(err, service.ErrTargetSpecialtyEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case m != nil:
			writeError(w, http.StatusInternalServerError, "mapping saved but decision log write failed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to approve suggestion")
		}
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

type rejectRequest struct {
	Source     string  `json:"source_specialty"`
	Target     string  `json:"target_specialty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Vendor     string  `json:"vendor,omitempty"`
}

func (h *MappingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Reject(r.Context(), req.Source, req.Target, req.Confidence, req.Reason, req.Vendor); err != nil {
		switch {
		case errors.Is(err, service.ErrSourceSpecialtyEmpty),
			errors.Is(err, service.ErrTargetSpecialtyEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record rejection")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MappingHandler) ListBySurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid survey id")
		return
	}

	mappings, err := h.svc.ListBySurvey(r.Context(), surveyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list mappings")
		return
	}
	if mappings == nil {
		mappings = []domain.SpecialtyMapping{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (h *MappingHandler) DeleteBySurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid survey id")
		return
	}

	deleted, err := h.svc.DeleteSurveyMappings(r.Context(), surveyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete mappings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

type createGroupRequest struct {
	Members []domain.GroupMember `json:"members"`
}

func (h *MappingHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.svc.CreateGroup(r.Context(), req.Members)
	if err != nil {
		if errors.Is(err, service.ErrGroupTooSmall) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

func (h *MappingHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []domain.MappedGroup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}
