package service

import (
	"context"
	"strings"
	"testing"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/match"
)

// stubResolver implements match.Resolver over a fixed vocabulary map
// keyed by the strict normalization form.
type stubResolver struct {
	vocab map[string][]string
}

func (s *stubResolver) Lookup(raw string) []string {
	return s.vocab[match.NormalizeKey(raw)]
}

func testEngine(t *testing.T, resolver match.Resolver, learning *LearningService) *MatchingEngine {
	t.Helper()
	scorer, err := match.NewScorer(resolver)
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return NewMatchingEngine(scorer, learning, DefaultSuggestionThreshold, testLogger())
}

func obs(specialty, vendor string) domain.Observation {
	return domain.Observation{Specialty: specialty, Vendor: vendor}
}

func TestMatchingEngine_Suggest_ExactAcrossVendors(t *testing.T) {
	engine := testEngine(t, nil, nil)

	byVendor := map[string][]domain.Observation{
		"mgma":           {obs("Cardiology", "mgma")},
		"sullivancotter": {obs("CARDIOLOGY", "sullivancotter")},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected a suggestion per vendor, got %d", len(suggestions))
	}
	first := suggestions[0]
	if len(first.SuggestedMatches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(first.SuggestedMatches))
	}
	m := first.SuggestedMatches[0]
	if m.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", m.Confidence)
	}
	if m.Reason != "exact match (normalized)" {
		t.Errorf("reason = %q", m.Reason)
	}
}

func TestMatchingEngine_Suggest_NeverSameVendor(t *testing.T) {
	engine := testEngine(t, nil, nil)

	byVendor := map[string][]domain.Observation{
		"mgma": {
			obs("Cardiology", "mgma"),
			obs("Cardiology", "mgma"),
		},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("identical names within one vendor must not match each other, got %d suggestions", len(suggestions))
	}
}

func TestMatchingEngine_Suggest_ExclusionBothDirections(t *testing.T) {
	engine := testEngine(t, nil, nil)

	byVendor := map[string][]domain.Observation{
		"mgma":           {obs("Cardiology", "mgma")},
		"sullivancotter": {obs("Cardiology", "sullivancotter")},
	}

	// Excluding either end suppresses the pairing entirely.
	excluded := map[string]struct{}{
		obs("Cardiology", "sullivancotter").Key(): {},
	}
	suggestions, err := engine.Suggest(context.Background(), byVendor, excluded)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("mapped observations must not appear as source or candidate, got %d suggestions", len(suggestions))
	}
}

func TestMatchingEngine_Suggest_SynonymViaRegistry(t *testing.T) {
	vocab := []string{"Physical Medicine and Rehabilitation", "Physiatry"}
	resolver := &stubResolver{vocab: map[string][]string{
		"physical medicine rehabilitation": vocab,
		"physiatry":                        vocab,
	}}
	engine := testEngine(t, resolver, nil)

	byVendor := map[string][]domain.Observation{
		"mgma":      {obs("Physiatry", "mgma")},
		"gallagher": {obs("Physical Medicine and Rehabilitation", "gallagher")},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("expected synonym-backed suggestion")
	}
	m := suggestions[0].SuggestedMatches[0]
	if m.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", m.Confidence)
	}
	if m.Reason != "synonym match" {
		t.Errorf("reason = %q, want synonym match", m.Reason)
	}
}

func TestMatchingEngine_Suggest_PredefinedSynonymEndToEnd(t *testing.T) {
	registry := NewSynonymRegistry(newMockSpecialtyStore(), newMockEventStore(), testLogger())
	if err := registry.CreateSpecialty(context.Background(), &domain.Specialty{
		Name:       "Cardiology",
		Predefined: []string{"Cardiovascular Disease"},
		Source:     domain.SpecialtySourcePredefined,
	}); err != nil {
		t.Fatalf("CreateSpecialty: %v", err)
	}

	engine := testEngine(t, registry, nil)

	byVendor := map[string][]domain.Observation{
		"sullivancotter": {obs("Cardiovascular Disease", "sullivancotter")},
		"mgma":           {obs("Cardiology", "mgma")},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected a suggestion per vendor, got %d", len(suggestions))
	}
	for _, s := range suggestions {
		if len(s.SuggestedMatches) != 1 {
			t.Fatalf("source %q: expected 1 match, got %d", s.SourceSpecialty.Specialty, len(s.SuggestedMatches))
		}
		m := s.SuggestedMatches[0]
		if m.Confidence != 0.95 {
			t.Errorf("source %q: confidence = %v, want 0.95", s.SourceSpecialty.Specialty, m.Confidence)
		}
		if !strings.Contains(m.Reason, "synonym match") {
			t.Errorf("source %q: reason = %q, want synonym match", s.SourceSpecialty.Specialty, m.Reason)
		}
	}
}

func TestMatchingEngine_Suggest_SkipsEmptySpecialty(t *testing.T) {
	engine := testEngine(t, nil, nil)

	byVendor := map[string][]domain.Observation{
		"mgma":      {obs("  ", "mgma"), obs("Urology", "mgma")},
		"gallagher": {obs("Urology", "gallagher")},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("empty specialty must be skipped, not fail: %v", err)
	}
	for _, s := range suggestions {
		if s.SourceSpecialty.Specialty == "  " {
			t.Error("blank observation surfaced as a suggestion source")
		}
	}
}

func TestMatchingEngine_Suggest_ContextCancelled(t *testing.T) {
	engine := testEngine(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Suggest(ctx, map[string][]domain.Observation{
		"mgma": {obs("Cardiology", "mgma")},
	}, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestMatchingEngine_Suggest_RuleBiasOverridesLexicalScore(t *testing.T) {
	learning, _, _, _ := setupLearningTest()
	if err := learning.Record(context.Background(),
		approveEvent("Pulmonary Disease", "Sleep Medicine", 0.9, "mgma")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	engine := testEngine(t, nil, learning)

	byVendor := map[string][]domain.Observation{
		"mgma":      {obs("Pulmonary Disease", "mgma")},
		"gallagher": {obs("Sleep Medicine", "gallagher")},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("learned rule should lift the pair above the threshold")
	}
	m := suggestions[0].SuggestedMatches[0]
	if m.Confidence != 0.9 {
		t.Errorf("confidence = %v, want rule confidence 0.9", m.Confidence)
	}
	if m.Reason == "no match" {
		t.Errorf("reason should cite the rule, got %q", m.Reason)
	}
}

func TestMatchingEngine_Suggest_RejectedPairSortsLast(t *testing.T) {
	learning, eventStore, _, _ := setupLearningTest()
	eventStore.events = append(eventStore.events, domain.LearningEvent{
		Type:            domain.EventAutoMapReject,
		SourceSpecialty: "Cardiology",
		TargetSpecialty: "Cardiology - Consultative",
	})
	learning.Load(context.Background())

	engine := testEngine(t, nil, learning)

	byVendor := map[string][]domain.Observation{
		"mgma": {obs("Cardiology", "mgma")},
		"gallagher": {
			obs("Cardiology - Consultative", "gallagher"),
			obs("Cardiology - Invasive", "gallagher"),
		},
	}

	suggestions, err := engine.Suggest(context.Background(), byVendor, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	// Vendors iterate in sorted order, so pick out the mgma source
	// rather than relying on position.
	var matches []domain.Match
	for _, s := range suggestions {
		if s.SourceSpecialty.Vendor == "mgma" {
			matches = s.SuggestedMatches
		}
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches for the mgma source, got %d", len(matches))
	}
	// Both candidates score equal; the previously rejected pairing must
	// come second even though it sorts first by name.
	if matches[0].Specialty.Specialty != "Cardiology - Invasive" {
		t.Errorf("rejected pairing ranked first: %q", matches[0].Specialty.Specialty)
	}
}
