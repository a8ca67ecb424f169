package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/service"
)

type SuggestionHandler struct {
	engine  *service.MatchingEngine
	mapping *service.MappingService
	timeout time.Duration
}

func NewSuggestionHandler(engine *service.MatchingEngine, mapping *service.MappingService, timeout time.Duration) *SuggestionHandler {
	return &SuggestionHandler{engine: engine, mapping: mapping, timeout: timeout}
}

type suggestRequest struct {
	Observations []domain.Observation `json:"observations"`
	// AlreadyMapped supplements the persisted mapped-group exclusions
	// with "specialty:vendor" keys resolved only in the caller's view.
	AlreadyMapped []string `json:"already_mapped,omitempty"`
}

// Suggest runs the matching engine over the posted observations. A
// failed run degrades to an empty suggestion list rather than an error
// page; only malformed requests get a 4xx.
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	byVendor := make(map[string][]domain.Observation)
	for _, obs := range req.Observations {
		byVendor[obs.Vendor] = append(byVendor[obs.Vendor], obs)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	excluded, err := h.mapping.Exclusions(ctx)
	if err != nil {
		// Degrade: suggest over everything rather than fail the run.
		excluded = make(map[string]struct{})
	}
	for _, key := range req.AlreadyMapped {
		excluded[key] = struct{}{}
	}

	suggestions, err := h.engine.Suggest(ctx, byVendor, excluded)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeJSON(w, http.StatusOK, map[string]any{
				"suggestions": []domain.Suggestion{},
				"truncated":   true,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to generate suggestions")
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
