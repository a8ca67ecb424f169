package service

import (
	"context"
	"sort"
	"strings"

	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/match"
	"go.uber.org/zap"
)

const DefaultSuggestionThreshold = 0.5

// MatchingEngine proposes cross-vendor mapping candidates. It is a
// synchronous computation over in-memory observations; the only mutable
// collaborator is the learning service consulted for rule bias. The
// comparison space is O(vendors² × specialties²), so Suggest honors
// context cancellation between sources.
type MatchingEngine struct {
	scorer    *match.Scorer
	learning  *LearningService
	logger    *zap.Logger
	threshold float64
}

func NewMatchingEngine(scorer *match.Scorer, learning *LearningService, threshold float64, logger *zap.Logger) *MatchingEngine {
	if threshold <= 0 {
		threshold = DefaultSuggestionThreshold
	}
	return &MatchingEngine{
		scorer:    scorer,
		learning:  learning,
		logger:    logger,
		threshold: threshold,
	}
}

// Suggest compares every unmapped specialty of each vendor against
// every unmapped specialty of every other vendor. Sources with no
// candidate above the threshold are omitted entirely. The exclusion set
// holds "specialty:vendor" keys and is checked on both ends of each
// comparison. Empty specialty strings are skipped with a warning, never
// an error.
func (e *MatchingEngine) Suggest(ctx context.Context, byVendor map[string][]domain.Observation, alreadyMapped map[string]struct{}) ([]domain.Suggestion, error) {
	vendors := make([]string, 0, len(byVendor))
	for v := range byVendor {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)

	var suggestions []domain.Suggestion
	for _, vendor := range vendors {
		for _, source := range byVendor[vendor] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if strings.TrimSpace(source.Specialty) == "" {
				e.logger.Warn("skipping observation with empty specialty",
					zap.String("vendor", vendor))
				continue
			}
			if _, mapped := alreadyMapped[source.Key()]; mapped {
				continue
			}

			matches := e.matchesFor(source, vendor, vendors, byVendor, alreadyMapped)
			if len(matches) == 0 {
				continue
			}
			suggestions = append(suggestions, domain.Suggestion{
				SourceSpecialty:  source,
				SuggestedMatches: matches,
			})
		}
	}
	return suggestions, nil
}

func (e *MatchingEngine) matchesFor(source domain.Observation, sourceVendor string, vendors []string, byVendor map[string][]domain.Observation, alreadyMapped map[string]struct{}) []domain.Match {
	var matches []domain.Match
	for _, other := range vendors {
		if other == sourceVendor {
			continue
		}
		for _, candidate := range byVendor[other] {
			if strings.TrimSpace(candidate.Specialty) == "" {
				continue
			}
			if _, mapped := alreadyMapped[candidate.Key()]; mapped {
				continue
			}

			result := e.scorer.Score(source.Specialty, candidate.Specialty)
			confidence, reason := result.Value, result.Reason
			if e.learning != nil {
				if biased, ruleReason, ok := e.learning.RuleBias(source.Specialty, candidate.Specialty); ok && biased > confidence {
					confidence, reason = biased, ruleReason
				}
			}
			if confidence < e.threshold {
				continue
			}
			matches = append(matches, domain.Match{
				Specialty:  candidate,
				Confidence: confidence,
				Reason:     reason,
			})
		}
	}

	// Confidence descending; among equals, pairings the user has
	// rejected before sort last, then name order for determinism.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if e.learning != nil {
			fi := e.learning.FailureCount(source.Specialty, matches[i].Specialty.Specialty)
			fj := e.learning.FailureCount(source.Specialty, matches[j].Specialty.Specialty)
			if fi != fj {
				return fi < fj
			}
		}
		return matches[i].Specialty.Specialty < matches[j].Specialty.Specialty
	})
	return matches
}
