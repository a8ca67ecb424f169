package service

import (
	"context"
	"errors"
	"testing"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockSpecialtyStore implements domain.SpecialtyStore for testing.
type mockSpecialtyStore struct {
	specialties map[uuid.UUID]*domain.Specialty
}

func newMockSpecialtyStore() *mockSpecialtyStore {
	return &mockSpecialtyStore{specialties: make(map[uuid.UUID]*domain.Specialty)}
}

func (m *mockSpecialtyStore) Create(ctx context.Context, s *domain.Specialty) error {
	s.ID = uuid.New()
	cp := *s
	m.specialties[s.ID] = &cp
	return nil
}

func (m *mockSpecialtyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Specialty, error) {
	sp, ok := m.specialties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (m *mockSpecialtyStore) List(ctx context.Context) ([]domain.Specialty, error) {
	var result []domain.Specialty
	for _, sp := range m.specialties {
		result = append(result, *sp)
	}
	return result, nil
}

func (m *mockSpecialtyStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.specialties[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.specialties, id)
	return nil
}

func (m *mockSpecialtyStore) UpdateCustomSynonyms(ctx context.Context, id uuid.UUID, custom []string) error {
	sp, ok := m.specialties[id]
	if !ok {
		return store.ErrNotFound
	}
	sp.Custom = custom
	return nil
}

// mockEventStore implements domain.EventStore for testing.
type mockEventStore struct {
	events []domain.LearningEvent
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{}
}

func (m *mockEventStore) Append(ctx context.Context, e *domain.LearningEvent) error {
	e.ID = uuid.New()
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventStore) List(ctx context.Context, limit int) ([]domain.LearningEvent, error) {
	result := append([]domain.LearningEvent{}, m.events...)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockEventStore) ListByType(ctx context.Context, types []domain.EventType, limit int) ([]domain.LearningEvent, error) {
	wanted := make(map[domain.EventType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var result []domain.LearningEvent
	for _, e := range m.events {
		if wanted[e.Type] {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func setupRegistryTest(t *testing.T) (*SynonymRegistry, *mockSpecialtyStore, *mockEventStore, uuid.UUID) {
	t.Helper()
	specialtyStore := newMockSpecialtyStore()
	eventStore := newMockEventStore()
	registry := NewSynonymRegistry(specialtyStore, eventStore, testLogger())

	cardiology := &domain.Specialty{
		Name:       "Cardiology",
		Predefined: []string{"Cardiovascular Disease"},
		Source:     domain.SpecialtySourcePredefined,
	}
	if err := registry.CreateSpecialty(context.Background(), cardiology); err != nil {
		t.Fatalf("CreateSpecialty: %v", err)
	}
	return registry, specialtyStore, eventStore, cardiology.ID
}

func TestSynonymRegistry_ResolveBySynonym(t *testing.T) {
	registry, _, _, _ := setupRegistryTest(t)

	sp := registry.Resolve("CARDIOVASCULAR   disease")
	if sp == nil {
		t.Fatal("expected synonym to resolve after normalization")
	}
	if sp.Name != "Cardiology" {
		t.Errorf("resolved to %q, want Cardiology", sp.Name)
	}

	if registry.Resolve("Neurosurgery") != nil {
		t.Error("unknown specialty should not resolve")
	}
}

func TestSynonymRegistry_AddSynonym_DuplicateRejected(t *testing.T) {
	registry, _, _, cardioID := setupRegistryTest(t)
	ctx := context.Background()

	other := &domain.Specialty{Name: "Family Medicine"}
	if err := registry.CreateSpecialty(ctx, other); err != nil {
		t.Fatalf("CreateSpecialty: %v", err)
	}

	// Already owned by another specialty, in any formatting.
	err := registry.AddSynonym(ctx, other.ID, "Cardiovascular Disease")
	var dup *DuplicateSynonymError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSynonymError, got %v", err)
	}
	if dup.Owner != "Cardiology" {
		t.Errorf("duplicate owner = %q, want Cardiology", dup.Owner)
	}

	// Duplicating the target's own vocabulary is also rejected.
	err = registry.AddSynonym(ctx, cardioID, "cardiology")
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSynonymError for self-duplicate, got %v", err)
	}
}

func TestSynonymRegistry_AddSynonym_IndexesAndRecordsEvent(t *testing.T) {
	registry, specialtyStore, eventStore, cardioID := setupRegistryTest(t)
	ctx := context.Background()

	notified := 0
	registry.OnChange(func() { notified++ })

	if err := registry.AddSynonym(ctx, cardioID, "Heart Medicine"); err != nil {
		t.Fatalf("AddSynonym: %v", err)
	}

	if sp := registry.Resolve("heart medicine"); sp == nil || sp.ID != cardioID {
		t.Error("new synonym should resolve to its specialty")
	}
	if notified != 1 {
		t.Errorf("observer notified %d times, want 1", notified)
	}

	persisted := specialtyStore.specialties[cardioID]
	if len(persisted.Custom) != 1 || persisted.Custom[0] != "Heart Medicine" {
		t.Errorf("custom synonyms not persisted: %v", persisted.Custom)
	}

	if len(eventStore.events) != 1 {
		t.Fatalf("expected 1 learning event, got %d", len(eventStore.events))
	}
	if eventStore.events[0].Type != domain.EventSynonymAdd {
		t.Errorf("event type = %s, want %s", eventStore.events[0].Type, domain.EventSynonymAdd)
	}
}

func TestSynonymRegistry_RemoveSynonym(t *testing.T) {
	registry, _, eventStore, cardioID := setupRegistryTest(t)
	ctx := context.Background()

	if err := registry.RemoveSynonym(ctx, cardioID, "Cardiovascular Disease"); !errors.Is(err, ErrSynonymPredefined) {
		t.Errorf("removing predefined synonym: got %v, want ErrSynonymPredefined", err)
	}

	if err := registry.AddSynonym(ctx, cardioID, "Heart Medicine"); err != nil {
		t.Fatalf("AddSynonym: %v", err)
	}
	if err := registry.RemoveSynonym(ctx, cardioID, "heart MEDICINE"); err != nil {
		t.Fatalf("RemoveSynonym: %v", err)
	}
	if registry.Resolve("Heart Medicine") != nil {
		t.Error("removed synonym should no longer resolve")
	}

	var removeEvents int
	for _, e := range eventStore.events {
		if e.Type == domain.EventSynonymRemove {
			removeEvents++
		}
	}
	if removeEvents != 1 {
		t.Errorf("expected 1 synonym_remove event, got %d", removeEvents)
	}

	if err := registry.RemoveSynonym(ctx, cardioID, "Heart Medicine"); !errors.Is(err, ErrSynonymNotFound) {
		t.Errorf("removing absent synonym: got %v, want ErrSynonymNotFound", err)
	}
}

func TestSynonymRegistry_CreateSpecialty_NameCollision(t *testing.T) {
	registry, _, _, _ := setupRegistryTest(t)

	err := registry.CreateSpecialty(context.Background(), &domain.Specialty{Name: "cardiovascular disease"})
	var dup *DuplicateSynonymError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSynonymError, got %v", err)
	}
}

func TestSynonymRegistry_DeleteSpecialty_UnindexesVocabulary(t *testing.T) {
	registry, _, _, cardioID := setupRegistryTest(t)
	ctx := context.Background()

	if err := registry.DeleteSpecialty(ctx, cardioID); err != nil {
		t.Fatalf("DeleteSpecialty: %v", err)
	}
	if registry.Resolve("Cardiology") != nil || registry.Resolve("Cardiovascular Disease") != nil {
		t.Error("deleted specialty's vocabulary should not resolve")
	}

	if err := registry.DeleteSpecialty(ctx, cardioID); !errors.Is(err, ErrSpecialtyNotFound) {
		t.Errorf("double delete: got %v, want ErrSpecialtyNotFound", err)
	}
}

func TestSynonymRegistry_Lookup(t *testing.T) {
	registry, _, _, _ := setupRegistryTest(t)

	names := registry.Lookup("cardiovascular disease")
	if len(names) != 2 {
		t.Fatalf("Lookup returned %d names, want 2", len(names))
	}
	if names[0] != "Cardiology" {
		t.Errorf("first name = %q, want canonical name first", names[0])
	}

	if registry.Lookup("unknown") != nil {
		t.Error("unresolved lookup should return nil")
	}
}
