package handlers

import (
	"net/http"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/service"
)

type LearningHandler struct {
	svc   *service.LearningService
	rules domain.RuleStore
}

func NewLearningHandler(svc *service.LearningService, rules domain.RuleStore) *LearningHandler {
	return &LearningHandler{svc: svc, rules: rules}
}

func (h *LearningHandler) Rules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []domain.MatchingRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// Suggestions returns rule- and history-derived targets for a single
// specialty, for use when a survey column has no cross-vendor
// counterpart loaded yet.
func (h *LearningHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	specialty := r.URL.Query().Get("specialty")
	if specialty == "" {
		writeError(w, http.StatusBadRequest, "specialty query parameter is required")
		return
	}
	vendor := r.URL.Query().Get("vendor")

	suggestions, err := h.svc.SuggestionsFor(r.Context(), specialty, vendor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to derive suggestions")
		return
	}
	if suggestions == nil {
		suggestions = []domain.RuleSuggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *LearningHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
