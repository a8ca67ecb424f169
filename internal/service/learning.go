package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/match"
	"go.uber.org/zap"
)

const (
	// Confidence gained per additional approval of the same pattern.
	ruleConfidenceStep = 0.1
	// Rules with no successes are pruned once older than this.
	staleRuleAge = 24 * time.Hour
	// Bounded example history per rule.
	maxRuleExamples = 10
	// Word-overlap floor for history-mined suggestions.
	minedOverlapThreshold = 0.7
	// Confidence assigned to structurally mined suggestions
	// (prefix/suffix/acronym) that carry no overlap ratio of their own.
	minedStructuralConfidence = 0.8
)

var ErrInvalidEventType = errors.New("invalid learning event type")

// LearningService owns the append-only decision log and the matching
// rules derived from it. Rule regeneration and the in-memory rule cache
// are serialized under one mutex: counter increments are not safe as
// concurrent read-modify-write. Persistence read failures degrade to an
// empty cache so the engine keeps running and simply offers no
// rule-biased suggestions; write failures are returned to the caller.
// There is no automatic retry.
type LearningService struct {
	events domain.EventStore
	rules  domain.RuleStore
	groups domain.GroupStore
	logger *zap.Logger

	mu       sync.Mutex
	cache    []domain.MatchingRule
	failures map[string]int
}

func NewLearningService(events domain.EventStore, rules domain.RuleStore, groups domain.GroupStore, logger *zap.Logger) *LearningService {
	return &LearningService{
		events:   events,
		rules:    rules,
		groups:   groups,
		logger:   logger,
		failures: make(map[string]int),
	}
}

// Load primes the rule cache. A read failure leaves the service usable
// with an empty cache.
func (s *LearningService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		s.logger.Error("learning state load failed, continuing with empty state", zap.Error(err))
	}
}

func pairKey(source, target string) string {
	return match.NormalizeKey(source) + "\x00" + match.NormalizeKey(target)
}

// Record appends an event to the immutable log and triggers rule
// regeneration. The append error is returned so the caller knows the
// decision did not durably persist.
func (s *LearningService) Record(ctx context.Context, e *domain.LearningEvent) error {
	if !domain.ValidEventType(string(e.Type)) {
		return ErrInvalidEventType
	}
	if err := s.events.Append(ctx, e); err != nil {
		return fmt.Errorf("append learning event: %w", err)
	}
	if err := s.RegenerateRules(ctx); err != nil {
		s.logger.Error("rule regeneration failed after event", zap.Error(err))
	}
	return nil
}

// RegenerateRules deterministically recomputes the rule set from the
// full event history: prune never-successful rules older than 24h, then
// for every (source, target) pair seen in manual_map/auto_map_approve
// events either update the existing rule or create one with a match
// type inferred from the recorded pattern flags. Failures (rejects) are
// counted but never lower a rule's confidence.
func (s *LearningService) RegenerateRules(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned, err := s.rules.DeleteStale(ctx, time.Now().Add(-staleRuleAge))
	if err != nil {
		s.logger.Warn("stale rule prune failed", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Info("pruned stale rules", zap.Int64("count", pruned))
	}

	approvals, err := s.events.ListByType(ctx,
		[]domain.EventType{domain.EventManualMap, domain.EventAutoMapApprove}, 0)
	if err != nil {
		s.cache = nil
		return fmt.Errorf("load approval events: %w", err)
	}
	rejects, err := s.events.ListByType(ctx,
		[]domain.EventType{domain.EventAutoMapReject}, 0)
	if err != nil {
		s.cache = nil
		return fmt.Errorf("load reject events: %w", err)
	}
	existing, err := s.rules.List(ctx)
	if err != nil {
		s.cache = nil
		return fmt.Errorf("load rules: %w", err)
	}

	failures := make(map[string]int)
	for _, e := range rejects {
		failures[pairKey(e.SourceSpecialty, e.TargetSpecialty)]++
	}

	byPair := make(map[string][]domain.LearningEvent)
	var order []string
	for _, e := range approvals {
		if e.SourceSpecialty == "" || e.TargetSpecialty == "" {
			continue
		}
		key := pairKey(e.SourceSpecialty, e.TargetSpecialty)
		if _, seen := byPair[key]; !seen {
			order = append(order, key)
		}
		byPair[key] = append(byPair[key], e)
	}

	ruleByPair := make(map[string]*domain.MatchingRule, len(existing))
	for i := range existing {
		r := &existing[i]
		ruleByPair[pairKey(r.SourcePattern, r.TargetPattern)] = r
	}

	var cache []domain.MatchingRule
	for _, key := range order {
		evs := byPair[key]
		first := evs[0]
		last := evs[len(evs)-1]

		successes := len(evs)
		confidence := first.Confidence + ruleConfidenceStep*float64(successes-1)
		if confidence > 1 {
			confidence = 1
		}
		examples := make([]string, 0, maxRuleExamples)
		for _, e := range evs {
			if len(examples) == maxRuleExamples {
				examples = examples[1:]
			}
			examples = append(examples, fmt.Sprintf("%s -> %s", e.SourceSpecialty, e.TargetSpecialty))
		}
		applied := last.CreatedAt

		if rule, ok := ruleByPair[key]; ok {
			rule.SuccessCount = successes
			rule.Confidence = confidence
			rule.FailureCount = failures[key]
			rule.Examples = examples
			rule.LastApplied = &applied
			rule.IsActive = true
			if err := s.rules.Update(ctx, rule); err != nil {
				s.logger.Error("rule update failed",
					zap.String("source", rule.SourcePattern),
					zap.String("target", rule.TargetPattern),
					zap.Error(err))
				continue
			}
			cache = append(cache, *rule)
			continue
		}

		rule := &domain.MatchingRule{
			SourcePattern: first.SourceSpecialty,
			TargetPattern: first.TargetSpecialty,
			Confidence:    confidence,
			MatchType:     match.InferMatchType(first.Patterns),
			SuccessCount:  successes,
			FailureCount:  failures[key],
			Examples:      examples,
			IsActive:      true,
			LastApplied:   &applied,
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			s.logger.Error("rule create failed",
				zap.String("source", rule.SourcePattern),
				zap.String("target", rule.TargetPattern),
				zap.Error(err))
			continue
		}
		ruleByPair[key] = rule
		cache = append(cache, *rule)
	}

	s.cache = cache
	s.failures = failures
	return nil
}

func (s *LearningService) reloadLocked(ctx context.Context) error {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		s.cache = nil
		return err
	}
	rejects, err := s.events.ListByType(ctx, []domain.EventType{domain.EventAutoMapReject}, 0)
	if err != nil {
		s.cache = nil
		return err
	}
	failures := make(map[string]int)
	for _, e := range rejects {
		failures[pairKey(e.SourceSpecialty, e.TargetSpecialty)]++
	}
	s.cache = rules
	s.failures = failures
	return nil
}

// RuleBias returns the confidence and citation of an active rule whose
// source pattern equals the given specialty and whose target equals the
// candidate, if one exists in the cache.
func (s *LearningService) RuleBias(source, target string) (float64, string, bool) {
	key := pairKey(source, target)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.cache {
		if !r.IsActive {
			continue
		}
		if pairKey(r.SourcePattern, r.TargetPattern) == key {
			reason := fmt.Sprintf("%s rule match (%d successes)", r.MatchType, r.SuccessCount)
			return r.Confidence, reason, true
		}
	}
	return 0, "", false
}

// FailureCount reports recorded rejections for a pairing; the engine
// uses it to deprioritize equally scored candidates.
func (s *LearningService) FailureCount(source, target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[pairKey(source, target)]
}

// SuggestionsFor returns active-rule suggestions for a specialty first,
// then suggestions mined from historical approvals with word overlap of
// at least 0.7 or an exact prefix/suffix/acronym relation, deduplicated
// by target and sorted by confidence descending.
func (s *LearningService) SuggestionsFor(ctx context.Context, specialty, vendor string) ([]domain.RuleSuggestion, error) {
	sourceKey := match.NormalizeKey(specialty)
	if sourceKey == "" {
		return nil, nil
	}

	var suggestions []domain.RuleSuggestion
	best := make(map[string]int)

	add := func(sug domain.RuleSuggestion) {
		targetKey := match.NormalizeKey(sug.TargetSpecialty)
		if targetKey == "" || targetKey == sourceKey {
			return
		}
		if i, seen := best[targetKey]; seen {
			if sug.Confidence > suggestions[i].Confidence {
				suggestions[i] = sug
			}
			return
		}
		best[targetKey] = len(suggestions)
		suggestions = append(suggestions, sug)
	}

	s.mu.Lock()
	for _, r := range s.cache {
		if !r.IsActive || match.NormalizeKey(r.SourcePattern) != sourceKey {
			continue
		}
		add(domain.RuleSuggestion{
			TargetSpecialty: r.TargetPattern,
			Confidence:      r.Confidence,
			Reason:          fmt.Sprintf("%s rule match (%d successes)", r.MatchType, r.SuccessCount),
		})
	}
	s.mu.Unlock()

	approvals, err := s.events.ListByType(ctx,
		[]domain.EventType{domain.EventManualMap, domain.EventAutoMapApprove}, 0)
	if err != nil {
		s.logger.Error("history mining failed, returning rule suggestions only", zap.Error(err))
		return suggestions, nil
	}

	for _, e := range approvals {
		if e.TargetSpecialty == "" {
			continue
		}
		if vendor != "" && e.Vendor != "" && e.Vendor == vendor {
			// A vendor's own historical mappings target the same survey
			// column; only cross-vendor history generalizes.
			continue
		}
		overlap := wordOverlap(specialty, e.SourceSpecialty)
		flags := match.ComputePatterns(specialty, e.SourceSpecialty)
		switch {
		case overlap >= minedOverlapThreshold:
			add(domain.RuleSuggestion{
				TargetSpecialty: e.TargetSpecialty,
				Confidence:      overlap,
				Reason:          fmt.Sprintf("historical mapping of similar specialty %q", e.SourceSpecialty),
			})
		case flags.PrefixMatch || flags.SuffixMatch || flags.AcronymMatch:
			add(domain.RuleSuggestion{
				TargetSpecialty: e.TargetSpecialty,
				Confidence:      minedStructuralConfidence,
				Reason:          fmt.Sprintf("historical mapping of structurally related specialty %q", e.SourceSpecialty),
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions, nil
}

// Stats aggregates mapping connections and pattern types over the
// persisted mapped groups. Adjacent member pairs of multi-source groups
// each count as one cross-vendor connection; single-source groups are
// excluded from connection and pattern counts.
func (s *LearningService) Stats(ctx context.Context) (*domain.MatchingStats, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mapped groups: %w", err)
	}

	stats := &domain.MatchingStats{
		ByVendor:         make(map[string]int),
		PatternBreakdown: make(map[string]float64),
	}
	patternCounts := make(map[domain.MatchType]int)
	totalPairs := 0

	for _, g := range groups {
		for _, m := range g.Members {
			stats.ByVendor[m.Vendor]++
		}
		if g.IsSingleSource {
			continue
		}
		for i := 0; i+1 < len(g.Members); i++ {
			stats.TotalConnections++
			flags := match.ComputePatterns(g.Members[i].Specialty, g.Members[i+1].Specialty)
			patternCounts[match.InferMatchType(flags)]++
			totalPairs++
		}
	}

	for t, n := range patternCounts {
		stats.PatternBreakdown[string(t)] = 100 * float64(n) / float64(totalPairs)
	}
	return stats, nil
}

func wordOverlap(a, b string) float64 {
	wa, wb := match.Words(a), match.Words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	union := len(wb)
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if inter == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
