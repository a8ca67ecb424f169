package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MappingStore struct {
	db *pgxpool.Pool
}

func NewMappingStore(db *pgxpool.Pool) *MappingStore {
	return &MappingStore{db: db}
}

// Upsert replaces any existing mapping for (survey, source specialty);
// re-saving a source specialty never appends a second row.
func (s *MappingStore) Upsert(ctx context.Context, m *domain.SpecialtyMapping) error {
	if m.MappedSpecialties == nil {
		m.MappedSpecialties = []string{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO specialty_mappings (survey_id, source_specialty, mapped_specialties, confidence, is_verified, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (survey_id, source_specialty) DO UPDATE SET
		    mapped_specialties = EXCLUDED.mapped_specialties,
		    confidence = EXCLUDED.confidence,
		    is_verified = EXCLUDED.is_verified,
		    notes = EXCLUDED.notes,
		    updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		m.SurveyID, m.SourceSpecialty, m.MappedSpecialties, m.Confidence, m.IsVerified, m.Notes,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *MappingStore) GetBySurveyAndSource(ctx context.Context, surveyID uuid.UUID, sourceSpecialty string) (*domain.SpecialtyMapping, error) {
	m := &domain.SpecialtyMapping{}
	err := s.db.QueryRow(ctx,
		`SELECT id, survey_id, source_specialty, mapped_specialties, confidence, is_verified, notes, created_at, updated_at
		 FROM specialty_mappings WHERE survey_id = $1 AND source_specialty = $2`,
		surveyID, sourceSpecialty,
	).Scan(&m.ID, &m.SurveyID, &m.SourceSpecialty, &m.MappedSpecialties, &m.Confidence, &m.IsVerified, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MappingStore) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]domain.SpecialtyMapping, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, survey_id, source_specialty, mapped_specialties, confidence, is_verified, notes, created_at, updated_at
		 FROM specialty_mappings WHERE survey_id = $1
		 ORDER BY source_specialty`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []domain.SpecialtyMapping
	for rows.Next() {
		var m domain.SpecialtyMapping
		if err := rows.Scan(&m.ID, &m.SurveyID, &m.SourceSpecialty, &m.MappedSpecialties, &m.Confidence, &m.IsVerified, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (s *MappingStore) DeleteBySurvey(ctx context.Context, surveyID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM specialty_mappings WHERE survey_id = $1`,
		surveyID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type GroupStore struct {
	db *pgxpool.Pool
}

func NewGroupStore(db *pgxpool.Pool) *GroupStore {
	return &GroupStore{db: db}
}

func (s *GroupStore) Create(ctx context.Context, g *domain.MappedGroup) error {
	members, err := json.Marshal(g.Members)
	if err != nil {
		return err
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO mapped_groups (members, is_single_source)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		members, g.IsSingleSource,
	).Scan(&g.ID, &g.CreatedAt)
}

func (s *GroupStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MappedGroup, error) {
	g := &domain.MappedGroup{}
	var members []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, members, is_single_source, created_at
		 FROM mapped_groups WHERE id = $1`,
		id,
	).Scan(&g.ID, &members, &g.IsSingleSource, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(members, &g.Members); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupStore) List(ctx context.Context) ([]domain.MappedGroup, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, members, is_single_source, created_at
		 FROM mapped_groups
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.MappedGroup
	for rows.Next() {
		var g domain.MappedGroup
		var members []byte
		if err := rows.Scan(&g.ID, &members, &g.IsSingleSource, &g.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(members, &g.Members); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *GroupStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM mapped_groups WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
