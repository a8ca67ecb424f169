package store

import (
	"context"
	"time"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore persists learning events. Append-only: no update or delete
// statement exists for learning_events anywhere in this package.
type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, e *domain.LearningEvent) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO learning_events (type, source_specialty, target_specialty, confidence, reason, vendor, word_match, prefix_match, suffix_match, acronym_match)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		e.Type, e.SourceSpecialty, e.TargetSpecialty, e.Confidence, e.Reason, e.Vendor,
		e.Patterns.WordMatch, e.Patterns.PrefixMatch, e.Patterns.SuffixMatch, e.Patterns.AcronymMatch,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EventStore) List(ctx context.Context, limit int) ([]domain.LearningEvent, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, type, source_specialty, target_specialty, confidence, reason, vendor, word_match, prefix_match, suffix_match, acronym_match, created_at
		 FROM learning_events
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.LearningEvent
	for rows.Next() {
		var e domain.LearningEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.SourceSpecialty, &e.TargetSpecialty, &e.Confidence, &e.Reason, &e.Vendor,
			&e.Patterns.WordMatch, &e.Patterns.PrefixMatch, &e.Patterns.SuffixMatch, &e.Patterns.AcronymMatch, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *EventStore) ListByType(ctx context.Context, types []domain.EventType, limit int) ([]domain.LearningEvent, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, type, source_specialty, target_specialty, confidence, reason, vendor, word_match, prefix_match, suffix_match, acronym_match, created_at
		 FROM learning_events
		 WHERE type = ANY($1)
		 ORDER BY created_at ASC
		 LIMIT $2`,
		types, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.LearningEvent
	for rows.Next() {
		var e domain.LearningEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.SourceSpecialty, &e.TargetSpecialty, &e.Confidence, &e.Reason, &e.Vendor,
			&e.Patterns.WordMatch, &e.Patterns.PrefixMatch, &e.Patterns.SuffixMatch, &e.Patterns.AcronymMatch, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type RuleStore struct {
	db *pgxpool.Pool
}

func NewRuleStore(db *pgxpool.Pool) *RuleStore {
	return &RuleStore{db: db}
}

func (s *RuleStore) Create(ctx context.Context, r *domain.MatchingRule) error {
	if r.Examples == nil {
		r.Examples = []string{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO matching_rules (source_pattern, target_pattern, confidence, match_type, success_count, failure_count, examples, is_active, last_applied)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		r.SourcePattern, r.TargetPattern, r.Confidence, r.MatchType, r.SuccessCount, r.FailureCount, r.Examples, r.IsActive, r.LastApplied,
	).Scan(&r.ID, &r.CreatedAt)
}

func (s *RuleStore) Update(ctx context.Context, r *domain.MatchingRule) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE matching_rules
		 SET confidence = $2, match_type = $3, success_count = $4, failure_count = $5, examples = $6, is_active = $7, last_applied = $8
		 WHERE id = $1`,
		r.ID, r.Confidence, r.MatchType, r.SuccessCount, r.FailureCount, r.Examples, r.IsActive, r.LastApplied,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RuleStore) List(ctx context.Context) ([]domain.MatchingRule, error) {
	return s.list(ctx, `SELECT id, source_pattern, target_pattern, confidence, match_type, success_count, failure_count, examples, is_active, created_at, last_applied
		 FROM matching_rules
		 ORDER BY confidence DESC`)
}

func (s *RuleStore) ListActive(ctx context.Context) ([]domain.MatchingRule, error) {
	return s.list(ctx, `SELECT id, source_pattern, target_pattern, confidence, match_type, success_count, failure_count, examples, is_active, created_at, last_applied
		 FROM matching_rules
		 WHERE is_active
		 ORDER BY confidence DESC`)
}

func (s *RuleStore) list(ctx context.Context, query string) ([]domain.MatchingRule, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.MatchingRule
	for rows.Next() {
		var r domain.MatchingRule
		if err := rows.Scan(&r.ID, &r.SourcePattern, &r.TargetPattern, &r.Confidence, &r.MatchType, &r.SuccessCount, &r.FailureCount, &r.Examples, &r.IsActive, &r.CreatedAt, &r.LastApplied); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteStale prunes rules that never succeeded and are older than the
// cutoff.
func (s *RuleStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM matching_rules WHERE success_count = 0 AND created_at < $1`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
