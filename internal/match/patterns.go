package match

import (
	"strings"

	"github.com/calderhealth/specalign/internal/domain"
)

// ComputePatterns records which structural relations hold between a
// source and target specialty string. The flags ride on learning events
// and later determine the match type of rules derived from them.
func ComputePatterns(source, target string) domain.PatternFlags {
	ks, kt := NormalizeKey(source), NormalizeKey(target)
	flags := domain.PatternFlags{
		WordMatch:    shareWord(ks, kt),
		AcronymMatch: isAcronym(ks, kt) || isAcronym(kt, ks),
	}
	if ks != "" && kt != "" && ks != kt {
		flags.PrefixMatch = strings.HasPrefix(ks, kt) || strings.HasPrefix(kt, ks)
		flags.SuffixMatch = strings.HasSuffix(ks, kt) || strings.HasSuffix(kt, ks)
	}
	return flags
}

func shareWord(ka, kb string) bool {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(ka) {
		set[w] = struct{}{}
	}
	for _, w := range strings.Fields(kb) {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// isAcronym reports whether short equals the initials of long's words,
// e.g. "ent" for "ear nose throat".
func isAcronym(short, long string) bool {
	words := strings.Fields(long)
	if len(words) < 2 || len(short) != len(words) || strings.Contains(short, " ") {
		return false
	}
	for i, w := range words {
		if short[i] != w[0] {
			return false
		}
	}
	return true
}

// InferMatchType maps recorded pattern flags to the match type of a
// newly created rule.
func InferMatchType(p domain.PatternFlags) domain.MatchType {
	switch {
	case p.WordMatch:
		return domain.MatchTypeExact
	case p.PrefixMatch && !p.SuffixMatch:
		return domain.MatchTypePrefix
	case p.SuffixMatch && !p.PrefixMatch:
		return domain.MatchTypeSuffix
	case p.AcronymMatch:
		return domain.MatchTypeAcronym
	default:
		return domain.MatchTypeSimilar
	}
}
