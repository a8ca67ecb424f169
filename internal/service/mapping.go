package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/match"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSourceSpecialtyEmpty = errors.New("source specialty is required")
	ErrTargetSpecialtyEmpty = errors.New("at least one target specialty is required")
	ErrGroupTooSmall        = errors.New("a mapped group needs at least one member")
)

// MappingService persists per-survey specialty mappings and mapped
// groups, and records every decision as a learning event. Approvals and
// manual maps are verified at confidence 1; rejections persist nothing
// beyond their event.
type MappingService struct {
	mappings domain.MappingStore
	groups   domain.GroupStore
	learning *LearningService
	logger   *zap.Logger
}

func NewMappingService(mappings domain.MappingStore, groups domain.GroupStore, learning *LearningService, logger *zap.Logger) *MappingService {
	return &MappingService{
		mappings: mappings,
		groups:   groups,
		learning: learning,
		logger:   logger,
	}
}

// ManualMap saves a human-entered mapping: verified, confidence 1, one
// manual_map event per target.
func (s *MappingService) ManualMap(ctx context.Context, surveyID uuid.UUID, source string, targets []string, notes, vendor string) (*domain.SpecialtyMapping, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrSourceSpecialtyEmpty
	}
	targets = cleanTargets(targets)
	if len(targets) == 0 {
		return nil, ErrTargetSpecialtyEmpty
	}

	m := &domain.SpecialtyMapping{
		SurveyID:          surveyID,
		SourceSpecialty:   source,
		MappedSpecialties: targets,
		Confidence:        1,
		IsVerified:        true,
		Notes:             notes,
	}
	if err := s.mappings.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("save mapping: %w", err)
	}

	for _, target := range targets {
		event := &domain.LearningEvent{
			Type:            domain.EventManualMap,
			SourceSpecialty: source,
			TargetSpecialty: target,
			Confidence:      1,
			Reason:          "manual mapping",
			Vendor:          vendor,
			Patterns:        match.ComputePatterns(source, target),
		}
		if err := s.learning.Record(ctx, event); err != nil {
			s.logger.Error("manual map event not persisted",
				zap.String("source", source),
				zap.String("target", target),
				zap.Error(err))
			return m, fmt.Errorf("mapping saved but learning event failed: %w", err)
		}
	}
	return m, nil
}

// Approve persists a verified mapping for an accepted auto-suggestion
// and records the approval with the suggestion's original confidence.
func (s *MappingService) Approve(ctx context.Context, surveyID uuid.UUID, source, target string, confidence float64, reason, vendor string) (*domain.SpecialtyMapping, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrSourceSpecialtyEmpty
	}
	if strings.TrimSpace(target) == "" {
		return nil, ErrTargetSpecialtyEmpty
	}

	m := &domain.SpecialtyMapping{
		SurveyID:          surveyID,
		SourceSpecialty:   source,
		MappedSpecialties: []string{target},
		Confidence:        1,
		IsVerified:        true,
	}
	if err := s.mappings.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("save approved mapping: %w", err)
	}

	event := &domain.LearningEvent{
		Type:            domain.EventAutoMapApprove,
		SourceSpecialty: source,
		TargetSpecialty: target,
		Confidence:      confidence,
		Reason:          reason,
		Vendor:          vendor,
		Patterns:        match.ComputePatterns(source, target),
	}
	if err := s.learning.Record(ctx, event); err != nil {
		s.logger.Error("approval event not persisted",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err))
		return m, fmt.Errorf("mapping saved but learning event failed: %w", err)
	}
	return m, nil
}

// Reject records the refusal of an auto-suggestion. Nothing else is
// persisted; the next suggestion run deprioritizes the pairing.
func (s *MappingService) Reject(ctx context.Context, source, target string, confidence float64, reason, vendor string) error {
	if strings.TrimSpace(source) == "" {
		return ErrSourceSpecialtyEmpty
	}
	if strings.TrimSpace(target) == "" {
		return ErrTargetSpecialtyEmpty
	}

	event := &domain.LearningEvent{
		Type:            domain.EventAutoMapReject,
		SourceSpecialty: source,
		TargetSpecialty: target,
		Confidence:      confidence,
		Reason:          reason,
		Vendor:          vendor,
		Patterns:        match.ComputePatterns(source, target),
	}
	return s.learning.Record(ctx, event)
}

func (s *MappingService) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]domain.SpecialtyMapping, error) {
	return s.mappings.ListBySurvey(ctx, surveyID)
}

// DeleteSurveyMappings removes a deleted survey's mappings. The event
// log is untouched: decisions already made remain training signal.
func (s *MappingService) DeleteSurveyMappings(ctx context.Context, surveyID uuid.UUID) (int64, error) {
	return s.mappings.DeleteBySurvey(ctx, surveyID)
}

// CreateGroup persists a cluster of equivalent cross-vendor
// observations. Groups whose members all come from one vendor are
// flagged single-source.
func (s *MappingService) CreateGroup(ctx context.Context, members []domain.GroupMember) (*domain.MappedGroup, error) {
	kept := members[:0]
	for _, m := range members {
		if strings.TrimSpace(m.Specialty) == "" {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil, ErrGroupTooSmall
	}

	vendors := make(map[string]struct{})
	for _, m := range kept {
		vendors[m.Vendor] = struct{}{}
	}
	g := &domain.MappedGroup{
		Members:        kept,
		IsSingleSource: len(vendors) <= 1,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("save mapped group: %w", err)
	}
	return g, nil
}

func (s *MappingService) ListGroups(ctx context.Context) ([]domain.MappedGroup, error) {
	return s.groups.List(ctx)
}

// Exclusions builds the already-mapped set for the matching engine from
// mapped-group membership, the canonical record of resolved
// specialties.
func (s *MappingService) Exclusions(ctx context.Context) (map[string]struct{}, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mapped groups: %w", err)
	}
	excluded := make(map[string]struct{})
	for _, g := range groups {
		for _, m := range g.Members {
			excluded[m.Key()] = struct{}{}
		}
	}
	return excluded, nil
}

func cleanTargets(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	kept := targets[:0]
	for _, t := range targets {
		if strings.TrimSpace(t) == "" {
			continue
		}
		key := match.NormalizeKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, t)
	}
	return kept
}
