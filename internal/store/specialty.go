package store

import (
	"context"
	"errors"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SpecialtyStore struct {
	db *pgxpool.Pool
}

func NewSpecialtyStore(db *pgxpool.Pool) *SpecialtyStore {
	return &SpecialtyStore{db: db}
}

func (s *SpecialtyStore) Create(ctx context.Context, sp *domain.Specialty) error {
	if sp.Source == "" {
		sp.Source = domain.SpecialtySourceCustom
	}
	if sp.Predefined == nil {
		sp.Predefined = []string{}
	}
	if sp.Custom == nil {
		sp.Custom = []string{}
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO specialties (name, category, predefined_synonyms, custom_synonyms, source, last_modified)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, last_modified, created_at`,
		sp.Name, sp.Category, sp.Predefined, sp.Custom, sp.Source,
	).Scan(&sp.ID, &sp.LastModified, &sp.CreatedAt)
}

func (s *SpecialtyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Specialty, error) {
	sp := &domain.Specialty{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, category, predefined_synonyms, custom_synonyms, source, last_modified, created_at
		 FROM specialties WHERE id = $1`,
		id,
	).Scan(&sp.ID, &sp.Name, &sp.Category, &sp.Predefined, &sp.Custom, &sp.Source, &sp.LastModified, &sp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sp, nil
}

func (s *SpecialtyStore) List(ctx context.Context) ([]domain.Specialty, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, category, predefined_synonyms, custom_synonyms, source, last_modified, created_at
		 FROM specialties
		 ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specialties []domain.Specialty
	for rows.Next() {
		var sp domain.Specialty
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Category, &sp.Predefined, &sp.Custom, &sp.Source, &sp.LastModified, &sp.CreatedAt); err != nil {
			return nil, err
		}
		specialties = append(specialties, sp)
	}
	return specialties, rows.Err()
}

func (s *SpecialtyStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM specialties WHERE id = $1`,
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

func (s *SpecialtyStore) UpdateCustomSynonyms(ctx context.Context, id uuid.UUID, custom []string) error {
	if custom == nil {
		custom = []string{}
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE specialties SET custom_synonyms = $2, last_modified = NOW() WHERE id = $1`,
		id, custom,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
