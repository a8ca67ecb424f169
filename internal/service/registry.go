package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/match"
	"github.com/calderhealth/specalign/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSynonymEmpty       = errors.New("synonym text is required")
	ErrSpecialtyNameEmpty = errors.New("specialty name is required")
	ErrSpecialtyNotFound  = errors.New("specialty not found")
	ErrSynonymNotFound    = errors.New("synonym not found")
	ErrSynonymPredefined  = errors.New("predefined synonyms cannot be removed")
)

// DuplicateSynonymError reports a synonym collision: the text already
// belongs to a specialty's vocabulary (canonical name, predefined or
// custom synonym) after normalization.
type DuplicateSynonymError struct {
	Text  string
	Owner string
}

func (e *DuplicateSynonymError) Error() string {
	return fmt.Sprintf("synonym %q already belongs to specialty %q", e.Text, e.Owner)
}

// SynonymRegistry maintains the canonical specialty catalog and an
// in-memory lookup index over every name and synonym, keyed by the
// strict normalization form. Mutations persist through the specialty
// store, emit learning events, and notify registered observers so any
// caching layer can invalidate.
type SynonymRegistry struct {
	specialties domain.SpecialtyStore
	events      domain.EventStore
	logger      *zap.Logger

	mu        sync.RWMutex
	index     map[string]*domain.Specialty
	byID      map[uuid.UUID]*domain.Specialty
	observers []func()
}

func NewSynonymRegistry(specialties domain.SpecialtyStore, events domain.EventStore, logger *zap.Logger) *SynonymRegistry {
	return &SynonymRegistry{
		specialties: specialties,
		events:      events,
		logger:      logger,
		index:       make(map[string]*domain.Specialty),
		byID:        make(map[uuid.UUID]*domain.Specialty),
	}
}

// Load reads the full catalog and rebuilds the lookup index.
func (r *SynonymRegistry) Load(ctx context.Context) error {
	specialties, err := r.specialties.List(ctx)
	if err != nil {
		return fmt.Errorf("load specialty catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = make(map[string]*domain.Specialty)
	r.byID = make(map[uuid.UUID]*domain.Specialty)
	for i := range specialties {
		sp := &specialties[i]
		r.byID[sp.ID] = sp
		for _, name := range sp.AllNames() {
			key := match.NormalizeKey(name)
			if key == "" {
				continue
			}
			if other, dup := r.index[key]; dup && other.ID != sp.ID {
				r.logger.Warn("duplicate synonym key in catalog",
					zap.String("key", key),
					zap.String("specialty", sp.Name),
					zap.String("conflicts_with", other.Name))
				continue
			}
			r.index[key] = sp
		}
	}
	r.logger.Info("synonym registry loaded",
		zap.Int("specialties", len(r.byID)),
		zap.Int("index_keys", len(r.index)))
	return nil
}

// OnChange registers an observer invoked after every catalog mutation.
// This is the synonyms-updated invalidation signal.
func (r *SynonymRegistry) OnChange(fn func()) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

func (r *SynonymRegistry) notify() {
	r.mu.RLock()
	observers := make([]func(), len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()
	for _, fn := range observers {
		fn()
	}
}

// Resolve returns the specialty owning the raw string, or nil when no
// specialty's name or synonyms normalize equal to it.
func (r *SynonymRegistry) Resolve(raw string) *domain.Specialty {
	key := match.NormalizeKey(raw)
	if key == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index[key]
}

// Lookup implements match.Resolver: the full name vocabulary of the
// owning specialty, nil when unresolved.
func (r *SynonymRegistry) Lookup(raw string) []string {
	sp := r.Resolve(raw)
	if sp == nil {
		return nil
	}
	return sp.AllNames()
}

// AllSynonyms returns the canonical name plus every predefined and
// custom synonym of a specialty.
func (r *SynonymRegistry) AllSynonyms(specialtyID uuid.UUID) ([]string, error) {
	r.mu.RLock()
	sp, ok := r.byID[specialtyID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSpecialtyNotFound
	}
	return sp.AllNames(), nil
}

// List returns the catalog in name order.
func (r *SynonymRegistry) List(ctx context.Context) ([]domain.Specialty, error) {
	return r.specialties.List(ctx)
}

// CreateSpecialty validates that neither the name nor any seeded synonym
// collides with the existing vocabulary, then persists and indexes the
// new entry.
func (r *SynonymRegistry) CreateSpecialty(ctx context.Context, sp *domain.Specialty) error {
	if strings.TrimSpace(sp.Name) == "" {
		return ErrSpecialtyNameEmpty
	}
	for _, name := range sp.AllNames() {
		if owner := r.Resolve(name); owner != nil {
			return &DuplicateSynonymError{Text: name, Owner: owner.Name}
		}
	}
	if err := r.specialties.Create(ctx, sp); err != nil {
		return err
	}

	r.mu.Lock()
	entry := *sp
	r.byID[entry.ID] = &entry
	for _, name := range entry.AllNames() {
		if key := match.NormalizeKey(name); key != "" {
			r.index[key] = &entry
		}
	}
	r.mu.Unlock()

	r.notify()
	return nil
}

// DeleteSpecialty removes a catalog entry and its synonyms.
func (r *SynonymRegistry) DeleteSpecialty(ctx context.Context, id uuid.UUID) error {
	if err := r.specialties.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSpecialtyNotFound
		}
		return err
	}

	r.mu.Lock()
	if sp, ok := r.byID[id]; ok {
		for _, name := range sp.AllNames() {
			key := match.NormalizeKey(name)
			if owner, ok := r.index[key]; ok && owner.ID == id {
				delete(r.index, key)
			}
		}
		delete(r.byID, id)
	}
	r.mu.Unlock()

	r.notify()
	return nil
}

// AddSynonym appends a custom synonym. It fails with
// DuplicateSynonymError when the normalized text already belongs to any
// specialty, including the target itself.
func (r *SynonymRegistry) AddSynonym(ctx context.Context, specialtyID uuid.UUID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrSynonymEmpty
	}
	if owner := r.Resolve(text); owner != nil {
		return &DuplicateSynonymError{Text: text, Owner: owner.Name}
	}

	r.mu.RLock()
	sp, ok := r.byID[specialtyID]
	r.mu.RUnlock()
	if !ok {
		return ErrSpecialtyNotFound
	}

	custom := append(append([]string{}, sp.Custom...), text)
	if err := r.specialties.UpdateCustomSynonyms(ctx, specialtyID, custom); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSpecialtyNotFound
		}
		return err
	}

	r.mu.Lock()
	sp.Custom = custom
	r.index[match.NormalizeKey(text)] = sp
	r.mu.Unlock()

	r.recordEvent(ctx, domain.EventSynonymAdd, text, sp.Name)
	r.notify()
	return nil
}

// RemoveSynonym deletes a custom synonym. Predefined synonyms are
// immutable through this path.
func (r *SynonymRegistry) RemoveSynonym(ctx context.Context, specialtyID uuid.UUID, text string) error {
	r.mu.RLock()
	sp, ok := r.byID[specialtyID]
	r.mu.RUnlock()
	if !ok {
		return ErrSpecialtyNotFound
	}

	key := match.NormalizeKey(text)
	for _, pre := range sp.Predefined {
		if match.NormalizeKey(pre) == key {
			return ErrSynonymPredefined
		}
	}

	custom := make([]string, 0, len(sp.Custom))
	found := false
	for _, c := range sp.Custom {
		if match.NormalizeKey(c) == key {
			found = true
			continue
		}
		custom = append(custom, c)
	}
	if !found {
		return ErrSynonymNotFound
	}

	if err := r.specialties.UpdateCustomSynonyms(ctx, specialtyID, custom); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSpecialtyNotFound
		}
		return err
	}

	r.mu.Lock()
	sp.Custom = custom
	if owner, ok := r.index[key]; ok && owner.ID == specialtyID {
		delete(r.index, key)
	}
	r.mu.Unlock()

	r.recordEvent(ctx, domain.EventSynonymRemove, text, sp.Name)
	r.notify()
	return nil
}

func (r *SynonymRegistry) recordEvent(ctx context.Context, eventType domain.EventType, text, specialtyName string) {
	e := &domain.LearningEvent{
		Type:            eventType,
		SourceSpecialty: text,
		TargetSpecialty: specialtyName,
		Confidence:      1,
		Reason:          "synonym catalog edit",
		Patterns:        match.ComputePatterns(text, specialtyName),
	}
	if err := r.events.Append(ctx, e); err != nil {
		r.logger.Error("failed to record synonym event",
			zap.String("type", string(eventType)),
			zap.String("synonym", text),
			zap.Error(err))
	}
}
