package match

import (
	"fmt"
	"strings"
)

// genericStoplist holds clinical filler words removed before computing
// word-overlap similarity in the generic fallback.
var genericStoplist = map[string]struct{}{
	"surgery":     {},
	"surgical":    {},
	"medicine":    {},
	"medical":     {},
	"care":        {},
	"specialist":  {},
	"specialties": {},
	"specialty":   {},
	"and":         {},
}

// Resolver looks up the full synonym vocabulary (canonical name plus
// predefined and custom synonyms) of the specialty owning a raw string.
// It returns nil when no specialty owns the string. Implementations must
// be side-effect free; the scorer calls it on every comparison.
type Resolver interface {
	Lookup(raw string) []string
}

// Result is a scored comparison between two specialty strings.
type Result struct {
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// Scorer computes 0..1 similarity between two specialty names. Pure and
// symmetric; its lookup tables are read-only after construction.
type Scorer struct {
	classifier *Classifier
	groups     []EquivalenceGroup
	resolver   Resolver
}

// NewScorer builds a scorer over the embedded curated tables.
func NewScorer(resolver Resolver) (*Scorer, error) {
	classifier, err := NewClassifier()
	if err != nil {
		return nil, err
	}
	groups, err := LoadEquivalenceGroups()
	if err != nil {
		return nil, err
	}
	return &Scorer{classifier: classifier, groups: groups, resolver: resolver}, nil
}

// NewScorerWith builds a scorer over caller-supplied tables.
func NewScorerWith(classifier *Classifier, groups []EquivalenceGroup, resolver Resolver) *Scorer {
	return &Scorer{classifier: classifier, groups: groups, resolver: resolver}
}

// Score compares two raw specialty strings. Match paths are tried in
// order and short-circuit: exact, equivalence group, synonym registry,
// critical-care heuristic, substring containment, word overlap. Two
// names classified into different non-empty domains never score above
// zero except on the exact path.
func (s *Scorer) Score(a, b string) Result {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return Result{0, "empty input"}
	}

	if na == nb {
		return Result{1.0, "exact match (normalized)"}
	}

	da, aOK := s.classifier.Classify(na)
	db, bOK := s.classifier.Classify(nb)
	if aOK && bOK && da != db {
		return Result{0, fmt.Sprintf("different clinical domains (%s vs %s)", da, db)}
	}

	if r, ok := s.scoreGroups(na, nb); ok {
		return r
	}

	if r, ok := s.scoreSynonyms(a, b); ok {
		return r
	}

	if containsCriticalCare(na) && containsCriticalCare(nb) {
		return Result{0.9, "critical care specialty match"}
	}

	return s.scoreGeneric(a, b, na, nb)
}

func (s *Scorer) scoreGroups(na, nb string) (Result, bool) {
	ka, kb := NormalizeKey(na), NormalizeKey(nb)
	for _, g := range s.groups {
		if g.containsBoth(ka, kb) {
			return Result{1.0, g.Reason}, true
		}
	}
	for _, g := range s.groups {
		if len(g.Keywords) == 0 || g.excluded(na) || g.excluded(nb) {
			continue
		}
		matched := 0
		hitA, hitB := false, false
		for _, kw := range g.Keywords {
			inA := strings.Contains(na, kw)
			inB := strings.Contains(nb, kw)
			if inA || inB {
				matched++
			}
			hitA = hitA || inA
			hitB = hitB || inB
		}
		// Each side must carry at least one group keyword; the full
		// keyword set may be distributed across the pair.
		if !hitA || !hitB {
			continue
		}
		need := min(2, len(g.Keywords))
		if g.RequireAll {
			need = len(g.Keywords)
		}
		if matched < need {
			continue
		}
		return Result{float64(matched) / float64(len(g.Keywords)), g.Reason}, true
	}
	return Result{}, false
}

func (g *EquivalenceGroup) containsBoth(ka, kb string) bool {
	foundA, foundB := false, false
	for _, eq := range g.Equivalents {
		key := NormalizeKey(eq)
		if key == ka {
			foundA = true
		}
		if key == kb {
			foundB = true
		}
	}
	return foundA && foundB
}

func (g *EquivalenceGroup) excluded(normalized string) bool {
	for _, ex := range g.Exclusions {
		if strings.Contains(normalized, ex) {
			return true
		}
	}
	return false
}

func (s *Scorer) scoreSynonyms(a, b string) (Result, bool) {
	if s.resolver == nil {
		return Result{}, false
	}
	namesA := s.resolver.Lookup(a)
	namesB := s.resolver.Lookup(b)
	if len(namesA) == 0 || len(namesB) == 0 {
		return Result{}, false
	}
	seen := make(map[string]struct{}, len(namesA))
	for _, n := range namesA {
		seen[NormalizeKey(n)] = struct{}{}
	}
	for _, n := range namesB {
		if _, ok := seen[NormalizeKey(n)]; ok {
			return Result{0.95, "synonym match"}, true
		}
	}
	return Result{}, false
}

func containsCriticalCare(normalized string) bool {
	return strings.Contains(normalized, "critical care") || strings.Contains(normalized, "intensivist")
}

func (s *Scorer) scoreGeneric(a, b, na, nb string) Result {
	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		return Result{0.9, "substring match"}
	}

	wordsA := contentWords(a)
	wordsB := contentWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return Result{0, "no match"}
	}
	inter := 0
	union := len(wordsB)
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if inter == 0 {
		return Result{0, "no match"}
	}
	ratio := float64(inter) / float64(union)
	return Result{ratio, fmt.Sprintf("string similarity: %d%%", int(ratio*100))}
}

func contentWords(s string) map[string]struct{} {
	words := Words(s)
	for w := range words {
		if _, stop := genericStoplist[w]; stop {
			delete(words, w)
		}
	}
	return words
}
