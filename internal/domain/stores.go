package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SpecialtyStore interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	List(ctx context.Context) ([]Specialty, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateCustomSynonyms(ctx context.Context, id uuid.UUID, custom []string) error
}

type MappingStore interface {
	// Upsert replaces any existing mapping for (survey, source specialty).
	Upsert(ctx context.Context, m *SpecialtyMapping) error
	GetBySurveyAndSource(ctx context.Context, surveyID uuid.UUID, sourceSpecialty string) (*SpecialtyMapping, error)
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]SpecialtyMapping, error)
	DeleteBySurvey(ctx context.Context, surveyID uuid.UUID) (int64, error)
}

type GroupStore interface {
	Create(ctx context.Context, g *MappedGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*MappedGroup, error)
	List(ctx context.Context) ([]MappedGroup, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventStore is append-only: no update or delete is exposed.
type EventStore interface {
	Append(ctx context.Context, e *LearningEvent) error
	List(ctx context.Context, limit int) ([]LearningEvent, error)
	ListByType(ctx context.Context, types []EventType, limit int) ([]LearningEvent, error)
}

type RuleStore interface {
	Create(ctx context.Context, r *MatchingRule) error
	Update(ctx context.Context, r *MatchingRule) error
	List(ctx context.Context) ([]MatchingRule, error)
	ListActive(ctx context.Context) ([]MatchingRule, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}
